package posting

// Built-in rule packs. The universal pack covers the cross-industry ERP
// event types; industry packs layer vertical-specific rules on top, and
// per-organization overrides loaded from storage replace either. The
// layering is resolved by NewRuleRegistry.

// Industry pack names
const (
	IndustryRestaurant = "restaurant"
	IndustrySalon      = "salon"
)

// UniversalRules returns the cross-industry default rule set
func UniversalRules() []PostingRule {
	return []PostingRule{
		{
			SmartCode: "HERA.ERP.SD.Invoice.Posted.v1",
			Validations: Validations{
				RequiredHeader: []string{"organization_id", "currency", "origin_txn_id"},
				RequiredLines:  []string{"role", "amount"},
				FiscalCheck:    FiscalCheckOpenPeriod,
			},
			PostingRecipe: PostingRecipe{Lines: []RecipeLine{
				{Derive: "DR AR", From: "finance.customer.ar_control"},
				{Derive: "CR Revenue", From: "finance.revenue.sales_account"},
				{Derive: "CR Tax", From: "finance.tax.output_account", Conditions: map[string]any{"metadata.taxable": true}},
			}},
			Outcomes: Outcomes{AutoPostIf: "ai_confidence >= 0.8"},
		},
		{
			SmartCode: "HERA.ERP.SD.Payment.Received.v1",
			Validations: Validations{
				RequiredHeader: []string{"organization_id", "currency", "origin_txn_id"},
				RequiredLines:  []string{"role", "amount"},
				FiscalCheck:    FiscalCheckOpenPeriod,
			},
			PostingRecipe: PostingRecipe{Lines: []RecipeLine{
				{Derive: "DR Bank", From: "finance.payment.clearing_account"},
				{Derive: "CR AR", From: "finance.customer.ar_control"},
			}},
			Outcomes: Outcomes{AutoPostIf: "ai_confidence >= 0.9"},
		},
		{
			SmartCode: "HERA.ERP.MM.GRN.Posted.v1",
			Validations: Validations{
				RequiredHeader: []string{"organization_id", "currency", "origin_txn_id"},
				RequiredLines:  []string{"role", "amount"},
				FiscalCheck:    FiscalCheckOpenPeriod,
			},
			PostingRecipe: PostingRecipe{Lines: []RecipeLine{
				{Derive: "DR Inventory", From: "finance.product.inventory_account"},
				{Derive: "CR GRIR", From: "finance.vendor.grir_account"},
			}},
			Outcomes: Outcomes{AutoPostIf: "ai_confidence >= 0.85"},
		},
		{
			SmartCode: "HERA.ERP.MM.Invoice.Posted.v1",
			Validations: Validations{
				RequiredHeader: []string{"organization_id", "currency", "origin_txn_id"},
				RequiredLines:  []string{"role", "amount"},
				FiscalCheck:    FiscalCheckOpenPeriod,
			},
			PostingRecipe: PostingRecipe{Lines: []RecipeLine{
				{Derive: "DR GRIR", From: "finance.vendor.grir_account"},
				{Derive: "CR AP", From: "finance.vendor.ap_control"},
			}},
			Outcomes: Outcomes{AutoPostIf: "ai_confidence >= 0.85"},
		},
		{
			SmartCode: "HERA.ERP.HR.Payroll.Run.v1",
			Validations: Validations{
				RequiredHeader: []string{"organization_id", "currency", "origin_txn_id"},
				RequiredLines:  []string{"role", "amount"},
				// Payroll for a future pay date is routine
				FiscalCheck: FiscalCheckAllowFuture,
			},
			PostingRecipe: PostingRecipe{Lines: []RecipeLine{
				{Derive: "DR Payroll Expense", From: "finance.payroll.expense_account"},
				{Derive: "CR Payroll Payable", From: "finance.payroll.payable_account"},
				{Derive: "CR Tax Withheld", From: "finance.payroll.withholding_account", Conditions: map[string]any{"metadata.has_withholding": true}},
			}},
			// Payroll always goes through review
			Outcomes: Outcomes{},
		},
		{
			SmartCode: "HERA.ERP.MM.Wastage.WriteOff.v1",
			Validations: Validations{
				RequiredHeader: []string{"organization_id", "currency", "origin_txn_id"},
				RequiredLines:  []string{"role", "amount"},
				FiscalCheck:    FiscalCheckBlockPast,
			},
			PostingRecipe: PostingRecipe{Lines: []RecipeLine{
				{Derive: "DR Wastage Expense", From: "finance.expense.wastage_account"},
				{Derive: "CR Inventory", From: "finance.product.inventory_account"},
			}},
			Outcomes: Outcomes{AutoPostIf: "ai_confidence >= 0.9 && total_amount < 1000"},
		},
	}
}

// IndustryRules returns the default rule pack for the given industry, or
// nil when no vertical pack exists
func IndustryRules(industry string) []PostingRule {
	switch industry {
	case IndustrySalon:
		return salonRules()
	case IndustryRestaurant:
		return restaurantRules()
	}
	return nil
}

func salonRules() []PostingRule {
	return []PostingRule{
		{
			SmartCode: "HERA.SALON.SALE.SERVICE.v1",
			Validations: Validations{
				RequiredHeader: []string{"organization_id", "currency", "origin_txn_id"},
				RequiredLines:  []string{"role", "amount"},
				FiscalCheck:    FiscalCheckOpenPeriod,
			},
			PostingRecipe: PostingRecipe{Lines: []RecipeLine{
				{Derive: "DR Payment", From: "finance.payment.clearing_account"},
				{Derive: "CR Revenue", From: "finance.revenue.service_account"},
				{Derive: "CR Tax", From: "finance.tax.output_account"},
			}},
			Outcomes: Outcomes{AutoPostIf: "ai_confidence >= 0.8"},
		},
		{
			SmartCode: "HERA.SALON.SALE.PRODUCT.v1",
			Validations: Validations{
				RequiredHeader: []string{"organization_id", "currency", "origin_txn_id"},
				RequiredLines:  []string{"role", "amount"},
				FiscalCheck:    FiscalCheckOpenPeriod,
			},
			PostingRecipe: PostingRecipe{Lines: []RecipeLine{
				{Derive: "DR Payment", From: "finance.payment.clearing_account"},
				{Derive: "CR Revenue", From: "finance.revenue.retail_account"},
				{Derive: "CR Tax", From: "finance.tax.output_account"},
			}},
			Outcomes: Outcomes{AutoPostIf: "ai_confidence >= 0.8"},
		},
		{
			SmartCode: "HERA.SALON.EXPENSE.SUPPLIES.v1",
			Validations: Validations{
				RequiredHeader: []string{"organization_id", "currency", "origin_txn_id"},
				RequiredLines:  []string{"role", "amount"},
				FiscalCheck:    FiscalCheckOpenPeriod,
			},
			PostingRecipe: PostingRecipe{Lines: []RecipeLine{
				{Derive: "DR Expense", From: "finance.expense.supplies_account"},
				{Derive: "CR AP", From: "finance.vendor.ap_control"},
			}},
			Outcomes: Outcomes{AutoPostIf: "ai_confidence >= 0.75 && total_amount < 500"},
		},
	}
}

func restaurantRules() []PostingRule {
	return []PostingRule{
		{
			SmartCode: "HERA.REST.POS.SALE.v1",
			Validations: Validations{
				RequiredHeader: []string{"organization_id", "currency", "origin_txn_id"},
				RequiredLines:  []string{"role", "amount"},
				FiscalCheck:    FiscalCheckOpenPeriod,
			},
			PostingRecipe: PostingRecipe{Lines: []RecipeLine{
				{Derive: "DR Payment", From: "finance.payment.clearing_account"},
				{Derive: "CR Revenue", From: "finance.revenue.food_account", Conditions: map[string]any{"metadata.category": "food"}},
				{Derive: "CR Revenue", From: "finance.revenue.beverage_account", Conditions: map[string]any{"metadata.category": "beverage"}},
				{Derive: "CR Tax", From: "finance.tax.output_account"},
			}},
			Outcomes: Outcomes{AutoPostIf: "ai_confidence >= 0.8"},
		},
		{
			SmartCode: "HERA.REST.INV.WASTAGE.v1",
			Validations: Validations{
				RequiredHeader: []string{"organization_id", "currency", "origin_txn_id"},
				RequiredLines:  []string{"role", "amount"},
				FiscalCheck:    FiscalCheckOpenPeriod,
			},
			PostingRecipe: PostingRecipe{Lines: []RecipeLine{
				{Derive: "DR Wastage Expense", From: "finance.expense.wastage_account"},
				{Derive: "CR Inventory", From: "finance.product.inventory_account"},
			}},
			Outcomes: Outcomes{AutoPostIf: "ai_confidence >= 0.9 && total_amount < 250"},
		},
		{
			SmartCode: "HERA.REST.PURCHASE.GRN.v1",
			Validations: Validations{
				RequiredHeader: []string{"organization_id", "currency", "origin_txn_id"},
				RequiredLines:  []string{"role", "amount"},
				FiscalCheck:    FiscalCheckOpenPeriod,
			},
			PostingRecipe: PostingRecipe{Lines: []RecipeLine{
				{Derive: "DR Inventory", From: "finance.product.inventory_account"},
				{Derive: "CR AP", From: "finance.vendor.ap_control"},
			}},
			Outcomes: Outcomes{AutoPostIf: "ai_confidence >= 0.85"},
		},
	}
}
