package viewmodels

type BaseVM struct {
	Title       string
	Active      string
	ProjectName string
	ContentTmpl string
	BaseURL     string
	Debug       bool
}
