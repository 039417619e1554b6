package insights

import (
	"encoding/json"
	"fmt"

	"bistro/internal/core"
)

// record is the compact per-transaction shape sent to the model.
type record struct {
	D string               `json:"d"`
	C string               `json:"c"`
	A json.Number          `json:"a"`
	T core.TransactionType `json:"t"`
}

const promptTemplate = `
You are an expert restaurant financial consultant. Analyze the following monthly transaction data (JSON format).
The currency is South African Rand (ZAR).

Data: %s

Please provide a professional financial report in Markdown format containing:
1. **Executive Summary**: A brief overview of the financial health.
2. **Key Metrics**: Calculate and comment on Prime Cost (Food/Bev COGS + All Labor) as a %% of Total Income. Ideally, this should be under 60%%.
3. **Income Analysis**: Which revenue streams are performing best?
4. **Expense Analysis**: Identify any alarming cost centers or outliers.
5. **Recommendations**: 3 actionable steps to improve Net Profit for next month.

Keep the tone professional, concise, and constructive. Use bolding and lists for readability.
`

func summaryData(txs []core.Transaction) ([]byte, error) {
	recs := make([]record, len(txs))
	for i, t := range txs {
		recs[i] = record{
			D: t.Date.String(),
			C: t.Category.String(),
			A: json.Number(t.Amount.String()),
			T: t.Type,
		}
	}
	return json.Marshal(recs)
}

// BuildPrompt renders the analysis request for txs.
func BuildPrompt(txs []core.Transaction) (string, error) {
	data, err := summaryData(txs)
	if err != nil {
		return "", fmt.Errorf("encode summary data: %w", err)
	}
	return fmt.Sprintf(promptTemplate, data), nil
}
