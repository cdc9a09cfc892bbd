package tool

import llmx "github.com/tanpawarit/Chative-Agent-Router/agent/llm"

// FinanceFunctions declares the backend procedures the finance loop may call.
// Tenant parameters are omitted; the dispatcher injects them.
func FinanceFunctions() []llmx.FunctionDecl {
	return []llmx.FunctionDecl{
		{
			Name:        "register_transaction",
			Description: "Registra un gasto o ingreso del usuario.",
			Params: []llmx.Param{
				{Name: "p_amount", Type: llmx.ParamNumber, Description: "Monto positivo", Required: true},
				{Name: "p_type", Type: llmx.ParamString, Description: "expense o income", Required: true},
				{Name: "p_category", Type: llmx.ParamString, Description: "Categoría sugerida"},
				{Name: "p_currency", Type: llmx.ParamString, Description: "Código ISO de moneda"},
				{Name: "p_description", Type: llmx.ParamString, Description: "Descripción breve"},
				{Name: "p_date", Type: llmx.ParamString, Description: "Fecha AAAA-MM-DD"},
			},
		},
		{
			Name:        "get_transactions_summary",
			Description: "Resume ingresos y gastos por categoría en un rango de fechas.",
			Params: []llmx.Param{
				{Name: "p_start_date", Type: llmx.ParamString, Description: "Fecha inicial AAAA-MM-DD", Required: true},
				{Name: "p_end_date", Type: llmx.ParamString, Description: "Fecha final AAAA-MM-DD", Required: true},
			},
		},
		{
			Name:        "get_recent_transactions",
			Description: "Lista los movimientos más recientes del usuario.",
			Params: []llmx.Param{
				{Name: "p_limit", Type: llmx.ParamInteger, Description: "Cantidad máxima, por defecto 10"},
			},
		},
		{
			Name:        "get_budget_status",
			Description: "Estado del presupuesto mensual, opcionalmente de una categoría.",
			Params: []llmx.Param{
				{Name: "p_category", Type: llmx.ParamString, Description: "Categoría a consultar"},
			},
		},
	}
}
