package ai

// ExtractPrompt asks for entities and relations as a single JSON object.
// The only argument is the (already truncated) document text.
const ExtractPrompt = `
You are a knowledge extraction system.

Your task:
- Extract entities and relationships from the given text.
- Respond with ONLY valid JSON.
- Do NOT include explanations.
- Do NOT include markdown.
- Do NOT include text outside the JSON object.

The JSON format MUST be exactly:

{
  "entities": [
    { "name": "EntityName", "type": "EntityType" }
  ],
  "relations": [
    { "source": "A", "relation": "RELATION", "target": "B" }
  ]
}

Text:
%s
`

// AnswerSystemPrompt keeps answers grounded in the retrieved graph rows.
const AnswerSystemPrompt = "You are an agronomy expert. " +
	"Answer the question using ONLY the data below. " +
	"Do NOT assume values that are not present. " +
	"If the graph knowledge is insufficient, say so clearly."

// AnswerPrompt takes the question and the rendered graph context.
const AnswerPrompt = `Question:
%s

Graph Knowledge:
%s

Answer:`

// RecommendPrompt takes, in order: nitrogen, phosphorus, potassium,
// temperature, pH, moisture, salinity, soil type, recommended crop and the
// comma separated alternatives.
const RecommendPrompt = `
Soil conditions:
Nitrogen: %s mg/kg
Phosphorus: %s mg/kg
Potassium: %s mg/kg
Temperature: %s °C
Soil pH: %s
Moisture: %s %%
Salinity: %s dS/m
Soil Type: %s

Recommended crop: %s
Alternative crops: %s

Explain clearly why the recommended crop is the best choice
based strictly on the soil conditions.
`
