package gemini

// SummarySystemInstruction is the instruction sent to the model for each
// group summary. The format string expects one parameter: the group name.
const SummarySystemInstruction = `Write a quick summary of what happened in the chat group since the last summary.

- Start by stating this is a quick summary of what happened in "%s" group recently.
- Use a casual conversational writing style.
- Keep it short and sweet.
- Write in the same language as the chat group. You MUST use the same language as the chat group!
- When mentioning users, use their names as they appear in the chat (not phone numbers).
- Focus on the main topics, decisions, and important information shared.
- If there are questions asked, mention if they were answered.
- Highlight any action items or important dates mentioned.

ONLY answer with the summary, no other text.`
