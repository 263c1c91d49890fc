package services

const commitSystemPrompt = `You write git commit messages following the Conventional Commits convention.

Review the staged diff you are given and work out WHAT changed and WHY.
Group related changes, then pick the commit type that best matches the main
intent: feat, fix, refactor, docs, config, cleanup, test or hotfix. Put the
file or module in parentheses as the scope, for example feat(main.go):.
Use a dual type such as "feat(api.go), fix(util.go):" only when both changes
are equally important.

Message layout:
- a summary line in the imperative mood, ideally under 74 characters
- a blank line
- a short explanation of what changed and why
- bullet points for secondary changes when there are several

First write your observations and the rationale for the chosen type, then put
the final message between <COMMIT_MESSAGE> and </COMMIT_MESSAGE> tags.`

const commitSystemPromptEmoji = `You write git commit messages that start with one or more gitmoji icons.

Review the staged diff you are given and work out WHAT changed and WHY.
Choose icons for the themes you find:
🐛 fix, ✨ feature, 📝 docs, 🚀 deploy, ✅ tests, ♻️ refactor, ⬆️ upgrade,
🔧 config, 🌐 i18n, 💡 comments, 💄 UI, 🔒 security, 🔥 remove, 🚑 hotfix,
🗃️ data, 🧪 experiment, ⚙️ build, 📦 package, 🏗️ structure, 🚨 lint,
📈 analytics, 🧹 cleanup.

Message layout:
- icons, the scope in parentheses and a summary line under 74 characters
- a blank line
- a short explanation of what changed and why

First write your observations and the rationale for the chosen icons, then put
the final message between <COMMIT_MESSAGE> and </COMMIT_MESSAGE> tags.`

const commitUserPrefix = "START BY CAREFULLY REVIEWING THE FOLLOWING DIFF:\n"

const commitUserAppendix = `

---

## COMMIT MESSAGE GUIDELINES
1. Review every change in the diff above.
2. For each change identify WHAT was changed and WHY.
3. Choose the commit type or types that reflect the main purpose.
4. Write an exhaustive message in the present tense and imperative mood.

Analyse the changes step by step before producing the final message, then
place it between <COMMIT_MESSAGE> and </COMMIT_MESSAGE> tags. A fenced
` + "```commit" + ` block is also accepted.
`

const commitNotesHeader = "\n\n## NOTES FROM THE AUTHOR\nTake these notes into account when writing the message:\n"

const summarizeSystemPrompt = `You are a version control expert. Summarize the commit messages you are
given into a single cohesive paragraph for a technical audience.

- Identify the common themes, the most significant changes and their purpose.
- Group similar commits and fold minor ones (typos, small refactors) into one line.
- Mention unrelated or conflicting commits briefly.
- Start with an overview, explain the reasons, end with the overall impact.
- Do not list commits one by one. Stay under 300 words.`
