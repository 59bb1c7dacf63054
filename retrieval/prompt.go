package retrieval

// SystemPrompt is the deterministic community-QA system prompt used by
// GraphRAG, ported verbatim from the original generate_community_answer
// prompt contract (4.J "call LLM with an extraction prompt demanding
// {information, confidence}").
const SystemPrompt = `You are an expert in text comprehension.
You will be provided with information about a topic. You are great in understanding the provided information.
You will collect all relevant information about the topic, that might be helpful in any way!
You will also provide a confidence score, rating how useful the information is to the user prompt.
This score will range from 0 (doesn't help at all) to 100 (information completely answers every aspect of the prompt).
Answer using a JSON Object!`

// UserPrompt wraps a stitched community bucket and the original user prompt
// into the QA prompt's two sections.
func UserPrompt(information, prompt string) string {
	return "Here is the provided information:\n" + information + "\n\nAnd here is the respective prompt:\n" + prompt
}
