package titles

// ResponseSchema describes the JSON array the prompt instructs the model to
// return. Payloads matching it can be decoded straight into records; anything
// else goes through coercion.
const ResponseSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "title": {"type": "string"},
      "page_number": {"type": "integer"}
    },
    "required": ["title", "page_number"],
    "additionalProperties": true
  }
}`
