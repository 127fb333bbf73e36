package chat

// AttachedFile is a file the user attached to a prompt. Data is the raw
// payload; providers that support inline attachments forward it as-is.
type AttachedFile struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Prompt is one user submission. It is created at the edge and read-only
// below it: nothing in the orchestration path mutates a prompt.
type Prompt struct {
	Text  string         `json:"text"`
	Files []AttachedFile `json:"files,omitempty"`

	// ImageDirective is set when the user asked for image generation
	// (the "/image ..." command in the original client). Text then
	// holds the image description with the directive stripped.
	ImageDirective bool `json:"image_directive,omitempty"`
}
