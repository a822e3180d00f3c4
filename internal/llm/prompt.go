package llm

import (
	"strings"

	"github.com/joseph-ayodele/scope3-tracker/constants"
)

// ChatPersona frames every conversational reply about an analysis.
const ChatPersona = `You are a helpful, concise assistant.
You receive:
1) Structured emissions analysis for an invoice.
2) A user's message that may or may not be about the analysis.

Behavior:
- If the message relates to the analysis, use only the provided data (suppliers, emissions, spend, hotspots) and highlight key takeaways plus 1-3 practical ideas.
- If the message is unrelated to the analysis, answer normally like a general chatbot without inventing analysis data.
- If you cannot answer from the analysis, say so and note what is missing.
Keep replies short and clear.`

// BuildExtractionPrompt asks for invoice line items as a JSON object with an "items" array.
func BuildExtractionPrompt(invoiceText string) string {
	var b strings.Builder
	b.WriteString("Extract structured invoice line items from the raw text below.\n")
	b.WriteString("Return only JSON with an 'items' array. Each item must include:\n")
	b.WriteString("- supplier (string)\n")
	b.WriteString("- description (string)\n")
	b.WriteString("- amount_usd (number or null)\n")
	b.WriteString("- qty_kg (number or null, kilograms)\n")
	b.WriteString("- weight_tons (number or null, metric tons)\n")
	b.WriteString("- distance_km (number or null, kilometers for transport legs)\n")
	b.WriteString("- category (" + strings.Join(constants.AsStringSlice(), ", ") + " if clear)\n")
	b.WriteString("Use numeric values only; strip currency symbols. If supplier is missing, reuse the last ")
	b.WriteString("supplier or 'Unknown Supplier'. Do not hallucinate items not in the text. Respond with JSON only.\n\n")
	b.WriteString("INVOICE TEXT:\n")
	b.WriteString(invoiceText)
	return b.String()
}

// BuildChatPrompt combines the persona, the analysis JSON and the user's message.
func BuildChatPrompt(message string, analysisJSON []byte) string {
	var b strings.Builder
	b.WriteString(ChatPersona)
	b.WriteString("\n\nHere is the invoice analysis JSON:\n")
	b.Write(analysisJSON)
	b.WriteString("\n\nUser's question: ")
	b.WriteString(strings.TrimSpace(message))
	b.WriteString("\nNow answer clearly in a few sentences.")
	return b.String()
}
