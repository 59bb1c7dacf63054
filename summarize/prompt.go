package summarize

import "fmt"

// SystemPrompt is the deterministic community-summary system prompt, ported
// from the original indexer's create_community_summary prompt contract
// (4.I "a single JSON object with label and description").
const SystemPrompt = `You are provided with multiple information.
As you are an expert in understanding and comprehension, you will summarize all the provided Information into natural language using whole sentences.
You will also add a label to the new description, which will be at most 5 words long.
Remember to only use the information provided to you and to summarize all of it into a single description and label.
Answer using a single JSON Object!`

// UserPrompt wraps the stitched child summaries into the prompt's
// "provided information" section.
func UserPrompt(information string) string {
	return fmt.Sprintf("Here is the provided information:\n%s", information)
}
