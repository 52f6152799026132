package gcp

// ExtractionSystemPrompt and ExtractionUserPrompt are sent with every page.
// The model sees a single-page PDF and answers with JSON blocks.
const ExtractionSystemPrompt = "You are an expert OCR and document structure extraction model. Extract ALL content from the provided PDF page, broken down into blocks. Return valid JSON only."

const ExtractionUserPrompt = `Extract every piece of content on this page and return it as JSON in exactly this shape:

{
  "blocks": [
    {
      "type": "paragraph" | "list_item" | "table",
      "text": "The exact raw text of the block, including original spacing and line breaks (\n)."
    }
  ]
}

Rules:
1. Preserve ALL original spacing and internal line breaks (\n) within the "text" field.
2. For lists, set "type" to "list_item" and keep the original bullet, number or letter (e.g. "1.", "a.", "- ") in the text.
3. For tables, set "type" to "table" and write the text as a markdown pipe table, e.g. "| Head 1 | Head 2 |\n|---|---|\n| R1C1 | R1C2 |".
4. Write superscripts as ^{...} and subscripts as _{...}: x2 becomes x^{2}, H2O becomes H_{2}O, a_n becomes a_{n}.
5. Only use the block types "paragraph", "list_item" and "table".
6. Ignore running headers, footers and page numbers.
7. Correct obvious OCR errors. Return valid JSON only, with no commentary.`
