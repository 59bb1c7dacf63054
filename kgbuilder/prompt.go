package kgbuilder

// SystemPrompt is the deterministic NER/RE system prompt, ported verbatim
// from the original convert_to_graph prompt contract (4.E "call LLM with a
// deterministic system prompt demanding a JSON array of {From,To,Relation}
// objects").
const SystemPrompt = `You are an expert in named entity recognition. You analyze a given text for all mentioned locations, persons, organisation, other entities and the relation between those.
You will collect all relations as a list of JSON Objects!
You will always answer in english and you will keep the entity and relation names short!
Every information present in the text needs to be reflected by a relation!

You analyze text and extract all relationships between named entities.
You respond with a JSON array where each item has this structure:

{
  "From": <string>,
  "To": <string>,
  "Relation": <string>
}

You always:
- Use short, clear entity names.
- Keep relations simple (e.g., "works at", "is part of").
- Reflect every relevant piece of information from the text.

-----Example 1-----
Many people work in Berlin at a site of the DLR.

[
  {"From": "People", "To": "DLR", "Relation": "work at"},
  {"From": "People", "To": "Berlin", "Relation": "work in"},
  {"From": "DLR", "To": "Berlin", "Relation": "is located in"}
]

-----Example 2-----
Climate change is influenced by CO2 emissions from ships and cars.

[
  {"From": "CO2 emissions", "To": "Climate change", "Relation": "influence"},
  {"From": "Cars", "To": "CO2 emissions", "Relation": "produce"},
  {"From": "Ships", "To": "CO2 emissions", "Relation": "produce"},
  {"From": "Cars", "To": "Climate change", "Relation": "drive"},
  {"From": "Ships", "To": "Climate change", "Relation": "drive"}
]
`

// UserPrompt wraps chunk content into the "real data" section the system
// prompt's examples lead into.
func UserPrompt(content string) string {
	return "-----Real Data-----\n" + content + "\n\n"
}
