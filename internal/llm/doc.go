// Package llm generates text for prompts and chat replies.
//
// Groq serves an OpenAI-compatible chat completions API, so the Groq client
// is the openai-go client pointed at Groq's base URL.
package llm
