package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maclay/research-assistant/backend/internal/models"
)

func TestCompaniesParsesBlocks(t *testing.T) {
	text := `Here are the companies I found:

Company: Acme Payments
Website: https://acme.example
Country: Germany
Characteristics: instant settlement for SME merchants
https://acme.example/case-study
https://news.example/acme-launch

Company: Borealis
Website: https://borealis.example
Country: Sweden
`
	got := Companies(text)
	require.Len(t, got, 2)

	assert.Equal(t, "Acme Payments", got[0].Name)
	assert.Equal(t, "https://acme.example", got[0].Website)
	assert.Equal(t, "Germany", got[0].Country)
	assert.Equal(t, "instant settlement for SME merchants", got[0].Characteristics)
	assert.Equal(t, []string{
		"https://acme.example/case-study",
		"https://news.example/acme-launch",
	}, got[0].Links)

	assert.Equal(t, "Borealis", got[1].Name)
	assert.Empty(t, got[1].Links)
}

func TestCompaniesRussianLabels(t *testing.T) {
	text := `Компания: Сбер
Сайт: https://sber.example
Страна: Россия
Характеристики: платежи по QR`

	got := Companies(text)
	require.Len(t, got, 1)
	assert.Equal(t, "Сбер", got[0].Name)
	assert.Equal(t, "https://sber.example", got[0].Website)
	assert.Equal(t, "Россия", got[0].Country)
	assert.Equal(t, "платежи по QR", got[0].Characteristics)
}

func TestCompaniesListMarkersStillMatch(t *testing.T) {
	// Models often prepend numbering; the label may not start the line.
	text := `1. Company: Acme
   Website: https://acme.example`

	got := Companies(text)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme", got[0].Name)
	assert.Equal(t, "https://acme.example", got[0].Website)
}

func TestCompaniesNameLabelStartsNewRecord(t *testing.T) {
	// No blank line between blocks: the second name label must still flush.
	text := `Company: First
Company: Second`

	got := Companies(text)
	require.Len(t, got, 2)
	assert.Equal(t, "First", got[0].Name)
	assert.Equal(t, "Second", got[1].Name)
}

func TestCompaniesIgnoresOrphanFields(t *testing.T) {
	// Field lines before any name label have nowhere to go.
	text := `Website: https://orphan.example
Country: Nowhere

Company: Real`

	got := Companies(text)
	require.Len(t, got, 1)
	assert.Equal(t, models.Company{Name: "Real"}, got[0])
}

func TestCompaniesEmptyInput(t *testing.T) {
	assert.Empty(t, Companies(""))
	assert.Empty(t, Companies("free-form prose without any labels"))
}
