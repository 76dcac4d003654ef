package reasoning

// stepSystemPrompt instructs the model to decompose a query into reasoning
// steps with actionable todos, in the format ParseTrace understands.
const stepSystemPrompt = `You are an AI assistant that uses Chain of Thought reasoning to break down complex problems into manageable todos.

Your task is to:
1. Analyze the user's query carefully
2. Break it down into logical steps using chain of thought reasoning
3. Create specific, actionable todos for each step
4. Consider dependencies between todos

Format your response with clear sections like:
## Step 1: [Step name]
[Your reasoning]
Action: [specific actionable task]

## Step 2: [Step name]
[Your reasoning]
Action: [another specific actionable task]

Each step must contain exactly one "Action:" line describing the todo it produces. Order steps so that later steps depend on earlier ones.`

// analyzeSystemPrompt instructs the model to turn execution feedback into
// concrete improvement suggestions.
const analyzeSystemPrompt = `You are analyzing feedback from todo execution to improve the process.

Based on the feedback provided, you should:
1. Analyze what went wrong or what could be improved
2. Suggest modifications to existing todos
3. Suggest new todos if needed

Be specific and actionable. Format each suggestion as a "- " bullet line.`

// analyzeUserTemplate is the user message layout for feedback analysis.
const analyzeUserTemplate = `Todo: %s
Status: %s
Feedback: %s
Current todos:
%s

Please analyze this feedback and suggest improvements.`

// stepUserTemplate is the user message layout for step generation. The
// current todo summary gives the model the state of prior iterations.
const stepUserTemplate = `Please analyze this query: %s

Current todo state:
%s`
