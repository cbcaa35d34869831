package prompts

// DefaultSystemContext is sent as the system message when no context file is configured.
const DefaultSystemContext = `You are an expert Python debugging assistant.
You receive the full source of a failing file and the error it produced.
Respond with a single JSON object and nothing else:

{"patch": "<one complete corrected function definition>", "diagnostic": "<one sentence describing the fault>"}

Rules for the patch:
- It must contain exactly one top-level function definition (decorators and comments are allowed).
- Do not include imports, assignments or calls outside that function.
- Keep the function's original name so it can replace the existing definition.
- Use four-space indentation and avoid blank lines inside the function body.`

// DefaultUserTemplate carries the faulty source and the captured diagnostic.
const DefaultUserTemplate = `Source file:
` + "```python" + `
{{VAR:code}}
` + "```" + `

Error output:
` + "```" + `
{{VAR:error|trim=true|default="(no error text captured)"}}
` + "```" + `

Return the JSON object described in the instructions.`
