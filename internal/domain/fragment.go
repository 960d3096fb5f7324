package domain

// FragmentType tags the variants of a streamed output fragment
type FragmentType string

const (
	FragmentText   FragmentType = "text"
	FragmentImage  FragmentType = "image"
	FragmentStatus FragmentType = "status"
)

// Fragment is one displayable unit produced while consuming a run stream.
// Consumers switch on Type: Text carries a token of assistant text, Image
// carries the bytes of a generated image plus its remote file ID, Status
// carries a transient notice such as a tool-call placeholder.
type Fragment struct {
	Type   FragmentType `json:"type"`
	Text   string       `json:"text,omitempty"`
	FileID string       `json:"file_id,omitempty"`
	Data   []byte       `json:"data,omitempty"`
}

// TextFragment builds a text fragment
func TextFragment(text string) Fragment {
	return Fragment{Type: FragmentText, Text: text}
}

// ImageFragment builds an image fragment from a generated file
func ImageFragment(fileID string, data []byte) Fragment {
	return Fragment{Type: FragmentImage, FileID: fileID, Data: data}
}

// StatusFragment builds a status notice fragment
func StatusFragment(text string) Fragment {
	return Fragment{Type: FragmentStatus, Text: text}
}

// GeneratedFile describes a file the assistant produced during a run
type GeneratedFile struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}
