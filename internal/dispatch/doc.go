// Package dispatch exposes a fixed catalog of prompts and tools over a
// mail.Service.
//
// Tools validate their required arguments before touching the service and
// wrap every result in a ToolResult: a text rendering plus, for lists and
// emails, a structured artifact. Prompts seed a conversation with a user
// turn and a generated assistant turn.
//
// Chat layers simple intent matching on top of the catalog and remembers
// one pending draft per user.
package dispatch
