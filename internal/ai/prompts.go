package ai

const analysisPrompt = `Analyze this photo for a food donation platform.

Rules:
1. If the image is not real food (logo, text, people, objects), set "foodName" to "Not food", "freshness" to "Unknown", "confidence" to 0.
2. If the food looks spoiled, moldy or unsafe, say so in "freshness" and "notes".
3. For packaged food, mention visible damage of the packaging.

Respond with a single JSON object:
{
  "foodName": string,
  "freshness": "Fresh" | "Good" | "Use soon" | "Spoiled" | "Unknown",
  "confidence": number between 0 and 1,
  "notes": string, one short sentence
}`

const recipePrompt = `Suggest 3 zero-waste recipes using: %s.
Respond with a JSON object {"recipes": [...]} where every item is
{"name": string, "ingredients": string[], "instructions": string[], "prepMinutes": number}.`
