package entity

type PageContent struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

type UIElement struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	AriaLabel string `json:"aria_label,omitempty"`
	Role      string `json:"role,omitempty"`
	Selector  string `json:"selector"`
}

type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}
