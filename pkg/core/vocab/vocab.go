// Package vocab holds the canonical financial item vocabulary: the ordered
// table mapping each standard item key to the vendor spellings accepted for
// it. Synonym order is a preference order; resolution takes the first match
// and never merges values from different spellings.
package vocab

import (
	"fmt"
	"os"

	hjson "github.com/hjson/hjson-go/v4"
)

// Entry is one canonical item and its accepted vendor spellings.
type Entry struct {
	Key      string
	Synonyms []string
}

// Vocabulary is an immutable ordered synonym table. Build one with Default
// or WithOverlay at startup and share it; lookups are read-only.
type Vocabulary struct {
	keys     []string
	synonyms map[string][]string
}

// Match is one resolved canonical item: the value and the vendor label that
// supplied it.
type Match struct {
	Value float64
	Label string
}

// defaultEntries is the built-in table. Key order and synonym order are
// both significant: keys define canonical display order, synonyms define
// resolution preference.
var defaultEntries = []Entry{
	// Income statement
	{"revenue", []string{"Total Revenue", "Revenue", "totalRevenue"}},
	{"cost_of_revenue", []string{"Cost Of Revenue", "Cost of Revenue", "costOfRevenue"}},
	{"gross_profit", []string{"Gross Profit", "grossProfit"}},
	{"research_development", []string{"Research Development", "researchDevelopmentExpense"}},
	{"selling_general_administrative", []string{"Selling General Administrative", "Selling General and Administrative", "sellingGeneralAdministrative", "sellingGeneralAndAdministrative"}},
	{"operating_expenses", []string{"Operating Expenses", "Total Operating Expenses", "totalOperatingExpenses", "OperatingExpenditures", "Total Operating Expenditures"}},
	{"operating_income", []string{"Operating Income", "Operating Income or Loss", "operatingIncome"}},
	{"interest_expense", []string{"Interest Expense", "interestExpense"}},
	{"income_before_tax", []string{"Income Before Tax", "Pretax Income", "incomeBeforeTax"}},
	{"income_tax_expense", []string{"Income Tax Expense", "Tax Provision", "incomeTaxExpense"}},
	{"net_income", []string{"Net Income", "Net Income Applicable To Common Shares", "netIncome", "netIncomeApplicableToCommonShares"}},

	// Balance sheet
	{"cash", []string{"Cash", "Cash And Cash Equivalents", "cashAndCashEquivalents"}},
	{"accounts_receivable", []string{"Net Receivables", "Accounts Receivable"}},
	{"inventory", []string{"Inventory", "inventory"}},
	{"current_assets", []string{"Total Current Assets", "Current Assets", "totalCurrentAssets"}},
	{"property_plant_equipment", []string{"Property Plant Equipment Net", "Total Property Plant Equipment", "Property plant and equipment net"}},
	{"total_assets", []string{"Total Assets", "totalAssets"}},
	{"accounts_payable", []string{"Accounts Payable"}},
	{"short_term_debt", []string{"Short Long Term Debt", "Short Term Debt", "Current Debt", "Current Liabilities And Long Term Debt"}},
	{"current_liabilities", []string{"Total Current Liabilities", "Current Liabilities", "totalCurrentLiabilities"}},
	{"long_term_debt", []string{"Long Term Debt", "longTermDebt"}},
	{"total_liabilities", []string{"Total Liab", "Total Liabilities", "totalLiab", "Total Liabilities Net Minority Interest"}},
	{"common_stock", []string{"Common Stock", "commonStock"}},
	{"retained_earnings", []string{"Retained Earnings", "retainedEarnings"}},
	{"total_equity", []string{"Total Stockholder Equity", "Stockholders Equity", "Total Equity", "totalStockholderEquity"}},

	// Cash flow statement
	{"depreciation_amortization", []string{"Depreciation And Amortization", "Depreciation & Amortization", "Depreciation"}},
	{"operating_cash_flow", []string{"Total Cash From Operating Activities", "Cash Flow From Operating Activities", "totalCashFromOperatingActivities"}},
	{"capital_expenditures", []string{"Capital Expenditures", "capex"}},
	{"investing_cash_flow", []string{"Total Cashflows From Investing Activities", "Cash Flow From Investing Activities", "totalCashflowsFromInvestingActivities"}},
	{"dividends_paid", []string{"Dividends Paid", "dividendsPaid"}},
	{"issuance_of_stock", []string{"Issuance Of Stock", "Issuance of Common Stock"}},
	{"repurchase_of_stock", []string{"Repurchase Of Stock", "Repurchase of Common Stock", "Treasury Stock"}},
	{"financing_cash_flow", []string{"Total Cash From Financing Activities", "Cash Flow From Financing Activities", "totalCashFromFinancingActivities"}},
	{"change_in_cash", []string{"Change In Cash", "Net Change In Cash", "changeInCash"}},

	// Verification helpers, usually redundant with total_assets
	{"liabilities_and_equity", []string{"Total Liabilities And Stockholders Equity"}},
}

// Default returns the built-in vocabulary.
func Default() *Vocabulary {
	return build(defaultEntries)
}

func build(entries []Entry) *Vocabulary {
	v := &Vocabulary{
		keys:     make([]string, 0, len(entries)),
		synonyms: make(map[string][]string, len(entries)),
	}
	for _, e := range entries {
		v.keys = append(v.keys, e.Key)
		syns := make([]string, len(e.Synonyms))
		copy(syns, e.Synonyms)
		v.synonyms[e.Key] = syns
	}
	return v
}

// WithOverlay returns a copy of v extended with synonyms loaded from an
// Hjson file of the form {standard_key: [extra spellings...]}. Overlay
// spellings are appended after the built-in ones so they can never steal
// precedence, and keys not already in the vocabulary are rejected.
func (v *Vocabulary) WithOverlay(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary overlay: %w", err)
	}

	var overlay map[string][]string
	if err := hjson.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse vocabulary overlay %s: %w", path, err)
	}

	out := &Vocabulary{
		keys:     make([]string, len(v.keys)),
		synonyms: make(map[string][]string, len(v.synonyms)),
	}
	copy(out.keys, v.keys)
	for key, syns := range v.synonyms {
		dup := make([]string, len(syns))
		copy(dup, syns)
		out.synonyms[key] = dup
	}

	for key, extra := range overlay {
		base, ok := out.synonyms[key]
		if !ok {
			return nil, fmt.Errorf("vocabulary overlay %s: unknown canonical key %q", path, key)
		}
		for _, syn := range extra {
			if syn == "" || contains(base, syn) {
				continue
			}
			base = append(base, syn)
		}
		out.synonyms[key] = base
	}
	return out, nil
}

// Keys returns the canonical item keys in declared order.
func (v *Vocabulary) Keys() []string {
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Synonyms returns the accepted vendor spellings for key, in preference
// order. Nil when the key is not part of the vocabulary.
func (v *Vocabulary) Synonyms(key string) []string {
	syns, ok := v.synonyms[key]
	if !ok {
		return nil
	}
	out := make([]string, len(syns))
	copy(out, syns)
	return out
}

// Has reports whether key is a canonical item.
func (v *Vocabulary) Has(key string) bool {
	_, ok := v.synonyms[key]
	return ok
}

// Len returns the number of canonical items.
func (v *Vocabulary) Len() int {
	return len(v.keys)
}

// Resolve maps one period's raw vendor bag onto canonical items. For each
// canonical key the synonym list is scanned in preference order and the
// first vendor label present in the bag wins; later spellings are ignored
// even when present. Keys with no match are left out of the result.
func (v *Vocabulary) Resolve(raw map[string]float64) map[string]Match {
	resolved := make(map[string]Match)
	for _, key := range v.keys {
		for _, label := range v.synonyms[key] {
			if value, ok := raw[label]; ok {
				resolved[key] = Match{Value: value, Label: label}
				break
			}
		}
	}
	return resolved
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
