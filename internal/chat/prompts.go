package chat

import (
	"fmt"
	"strings"
)

// basePromptTemplate is the durable system prompt. The assistant's
// service area is substituted at session start.
const basePromptTemplate = `You are a friendly and helpful assistant designed to assist with finding private schools in %[1]s. Your primary goal is to provide clear, concise, and relevant information based on user queries regarding private schools in the specified area. Always be informative and approachable, while keeping responses focused on the user's question without unnecessary details.

Key guidelines:
1. Keep responses short and to the point unless a detailed answer is required.
2. If a user asks a question unrelated to schools or searching for schools, politely redirect them by saying: "I'm here to assist with school searches, but I can't help with that specific request."
3. Prioritize being helpful, friendly, and maintaining a conversational tone.
4. Refer to %[1]s when answering location-specific questions.

Stay professional and positive at all times while guiding users through their school search.`

// BasePrompt returns the durable system prompt for the given service
// area.
func BasePrompt(area string) string {
	return fmt.Sprintf(basePromptTemplate, area)
}

const memoryPromptTemplate = `You analyze a conversation and maintain a list of long-lived facts about the user: family details, home address, schedule constraints, school preferences, budget. Current stored memories:
%s

Respond with JSON only, no prose and no code fences, in this exact shape:
{"update_needed": <bool>, "memories": ["<fact>", ...]}

Set "update_needed" to true only when the conversation reveals facts missing from the stored list, and return the complete updated list. Otherwise set it to false.`

// memoryPrompt builds the side-channel prompt for the memory decision
// call. current is the formatted stored-memory list.
func memoryPrompt(current string) string {
	if current == "" {
		current = "(none)"
	}
	return fmt.Sprintf(memoryPromptTemplate, current)
}

const ragPromptTemplate = `You decide whether answering the user's latest message requires looking up stored school documents. Known schools:
%s

Respond with JSON only, no prose and no code fences, in this exact shape:
{"fetch_school_data": <bool>, "rag_messages": [{"question": "<standalone question>", "school": "<school name>"}, ...], "rationale": "<one sentence>"}

Set "fetch_school_data" to true only when the message asks about a specific school's facts (tuition, admissions, calendar, programs). Each rag_messages entry must name one known school and restate the user's need as a standalone question.`

// ragPrompt builds the side-channel prompt for the retrieval decision
// call. schools is the list of known school names.
func ragPrompt(schools []string) string {
	list := "(none)"
	if len(schools) > 0 {
		list = "- " + strings.Join(schools, "\n- ")
	}
	return fmt.Sprintf(ragPromptTemplate, list)
}
