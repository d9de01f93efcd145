package prompt

const preamble = `You are chatting with two friends; the three of you are having a conversation.

Topic: {{.topic}}
`

const openingTemplate = preamble + `
[Important rules]
Have a conversation that answers this topic directly.
- "What's the weather tomorrow?" -> look up the forecast and answer
- "Any PC parts you'd recommend?" -> propose concrete parts
- Do not drift into related but different subjects (picnics, shopping, ...)

Over {{.total}} turns the conversation will reach a clear conclusion on this topic.

As the first turn:
- Speak toward answering the topic directly
- Raise the subject casually
- Keep it to 1-3 sentences

(No speaker labels such as "A:" or "B:")`

const middleTemplate = preamble + `
Conversation so far:
{{.history}}

This is turn {{.turn}}/{{.total}} ({{.stage}}).

[Important rules]
Keep the conversation answering the topic "{{.topic}}" directly.
If the previous speaker drifted off topic, bring it back.

Continue naturally from the previous speaker:
- React to the previous remark
- {{.guidance}}
- Move toward a conclusion on the topic
- Keep it to 1-3 sentences

(No speaker labels such as "A:" or "B:")`

const finalTemplate = preamble + `
Conversation so far:
{{.history}}

This is the final turn ({{.turn}}/{{.total}}).
Give a clear conclusion on the topic "{{.topic}}".

Depending on the nature of the topic:
- A question -> a concrete answer
- A request for a list -> an easy-to-read list (state product names, model numbers and prices)
- A request for advice -> an actionable proposal
- A discussion -> a summarized view

Examples:
"What's the weather tomorrow?" -> "Cloudy in the morning, rain in the afternoon, 22°C."
"Any PC parts?" -> [Recommended build] GPU: RTX 4070 ...

Be natural, but state the conclusion clearly.`
