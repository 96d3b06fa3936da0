package preview

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// MarkdownRenderer renders GitHub-flavoured markdown with highlighted
// code blocks into a standalone page.
type MarkdownRenderer struct {
	md    goldmark.Markdown
	shell *template.Template
}

func NewMarkdownRenderer(style string) *MarkdownRenderer {
	if style == "" {
		style = "github"
	}
	return &MarkdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(highlighting.WithStyle(style)),
			),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithUnsafe(), html.WithHardWraps()),
		),
		shell: template.Must(template.New("md").Parse(markdownShell)),
	}
}

func (r *MarkdownRenderer) Render(src string) (string, error) {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(src), &body); err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := r.shell.Execute(&out, template.HTML(body.String())); err != nil {
		return "", err
	}
	return out.String(), nil
}

const markdownShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Preview Markdown</title>
<style>
*{box-sizing:border-box}
body{font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,'Helvetica Neue',Arial,sans-serif;max-width:900px;margin:0 auto;padding:40px 20px;line-height:1.7;color:#24292e;background:#fff}
h1,h2{border-bottom:1px solid #eaecef;padding-bottom:.3em}
a{color:#0366d6;text-decoration:none}
code{font-family:ui-monospace,SFMono-Regular,Menlo,monospace;font-size:85%}
pre{position:relative;padding:16px;border-radius:6px;overflow:auto}
pre .copy{position:absolute;top:8px;right:8px;font-size:12px;cursor:pointer}
table{border-collapse:collapse}th,td{border:1px solid #dfe2e5;padding:6px 13px}
blockquote{margin:0;padding:0 1em;color:#6a737d;border-left:.25em solid #dfe2e5}
@media (prefers-color-scheme:dark){body{background:#0d1117;color:#c9d1d9}a{color:#58a6ff}h1,h2{border-bottom-color:#30363d}}
</style>
</head>
<body>
{{.}}
<script>
document.querySelectorAll('pre').forEach(function(pre){
  var b=document.createElement('button');b.className='copy';b.textContent='Copy';
  b.onclick=function(){navigator.clipboard.writeText(pre.innerText.replace(/Copy$/,''));b.textContent='Copied';setTimeout(function(){b.textContent='Copy'},1500)};
  pre.appendChild(b);
});
</script>
</body>
</html>
`
