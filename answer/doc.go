// Package answer turns a question into a grounded completion.
//
// An Answerer retrieves the most similar chunks of the day's article, joins
// them into a context block and asks the chat model a single question of
// the form:
//
//	Question: <question>
//
//	Context: <chunk 1>
//
//	<chunk 2>
//
// The response text is returned unchanged.
package answer
