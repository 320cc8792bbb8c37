// Package parser turns raw planner output into a typed core.Action.
//
// Planner output comes from language models and is frequently not strictly
// formatted, so the parser tries several encodings in a fixed order and the
// first one that yields an action wins:
//
//  1. a fenced ```json code block holding an action object
//  2. the whole text as a JSON action object
//  3. a line grammar made of "Action:", "Tool:" and "Args:" lines
//  4. plain prose (no "Action:" line, no JSON fence) as a final answer
//
// Step 4 can be switched off with WithoutProseFallback. When nothing
// matches, Parse returns ErrNoAction. An action whose type is not one of
// use_tool, task_list or final yields ErrUnknownAction.
package parser
