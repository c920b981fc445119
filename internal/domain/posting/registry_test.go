package posting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleFor(code SmartCode, autoPostIf string) PostingRule {
	return PostingRule{
		SmartCode: code,
		PostingRecipe: PostingRecipe{Lines: []RecipeLine{
			{Derive: "DR Payment", From: "finance.payment.clearing_account"},
			{Derive: "CR Revenue", From: "finance.revenue.sales_account"},
		}},
		Outcomes: Outcomes{AutoPostIf: autoPostIf},
	}
}

func TestNewRuleRegistryMerge(t *testing.T) {
	universal := []PostingRule{
		ruleFor("HERA.ERP.SD.Invoice.Posted.v1", "ai_confidence >= 0.8"),
		ruleFor("HERA.ERP.MM.GRN.Posted.v1", "ai_confidence >= 0.85"),
	}
	industry := []PostingRule{
		ruleFor("HERA.ERP.SD.Invoice.Posted.v1", "ai_confidence >= 0.9"),
		ruleFor("HERA.SALON.SALE.SERVICE.v1", "ai_confidence >= 0.8"),
	}
	overrides := []PostingRule{
		ruleFor("HERA.SALON.SALE.SERVICE.v1", "ai_confidence >= 0.95"),
	}

	registry, err := NewRuleRegistry(universal, industry, overrides)
	require.NoError(t, err)
	assert.Equal(t, 3, registry.Size())

	// higher-priority layers fully replace by smart code
	rule, err := registry.Rule("HERA.ERP.SD.Invoice.Posted.v1")
	require.NoError(t, err)
	assert.Equal(t, "ai_confidence >= 0.9", rule.Outcomes.AutoPostIf)

	rule, err = registry.Rule("HERA.SALON.SALE.SERVICE.v1")
	require.NoError(t, err)
	assert.Equal(t, "ai_confidence >= 0.95", rule.Outcomes.AutoPostIf)

	// untouched universal rules survive the merge
	rule, err = registry.Rule("HERA.ERP.MM.GRN.Posted.v1")
	require.NoError(t, err)
	assert.Equal(t, "ai_confidence >= 0.85", rule.Outcomes.AutoPostIf)
}

func TestRuleRegistryUnknownSmartCode(t *testing.T) {
	registry, err := NewRuleRegistry(UniversalRules())
	require.NoError(t, err)

	_, err = registry.Rule("HERA.UNKNOWN.FOO.BAR.v1")
	require.Error(t, err)
	assert.True(t, IsUnknownSmartCode(err))
	assert.Contains(t, err.Error(), "unknown smart code")

	assert.False(t, registry.Has("HERA.UNKNOWN.FOO.BAR.v1"))
	assert.True(t, registry.Has("HERA.ERP.SD.Invoice.Posted.v1"))
}

func TestNewRuleRegistryRejectsMalformedRules(t *testing.T) {
	t.Run("empty recipe", func(t *testing.T) {
		bad := PostingRule{SmartCode: "HERA.ERP.SD.Invoice.Posted.v1"}
		_, err := NewRuleRegistry([]PostingRule{bad})
		assert.Error(t, err)
	})

	t.Run("bad derive instruction", func(t *testing.T) {
		bad := ruleFor("HERA.ERP.SD.Invoice.Posted.v1", "")
		bad.PostingRecipe.Lines[0].Derive = "DEBIT Payment"
		_, err := NewRuleRegistry([]PostingRule{bad})
		assert.Error(t, err)
	})

	t.Run("bad auto_post_if", func(t *testing.T) {
		bad := ruleFor("HERA.ERP.SD.Invoice.Posted.v1", "ai_confidence >=")
		_, err := NewRuleRegistry([]PostingRule{bad})
		assert.Error(t, err)
	})
}

func TestBuiltinRulePacksAreValid(t *testing.T) {
	packs := map[string][]PostingRule{
		"universal":  UniversalRules(),
		"restaurant": IndustryRules(IndustryRestaurant),
		"salon":      IndustryRules(IndustrySalon),
	}
	for name, pack := range packs {
		t.Run(name, func(t *testing.T) {
			require.NotEmpty(t, pack)
			for _, rule := range pack {
				assert.NoError(t, rule.Validate(), "rule %s", rule.SmartCode)
			}
		})
	}

	assert.Nil(t, IndustryRules("logistics"))
}
