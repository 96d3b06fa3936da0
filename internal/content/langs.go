package content

import "strings"

var languages = map[string]string{
	"html": "html",
	"htm":  "html",
	"css":  "css",
	"js":   "javascript",
	"json": "json",
	"md":   "markdown",
	"txt":  "plaintext",
	"xml":  "xml",
	"yaml": "yaml",
	"yml":  "yaml",
	"ts":   "typescript",
	"py":   "python",
	"php":  "php",
	"sql":  "sql",
	"go":   "go",
	"lua":  "lua",
}

// NormalizeExt lower-cases and strips a leading dot.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// LanguageFor maps an extension to the editor language mode.
func LanguageFor(ext string) string {
	if l, ok := languages[NormalizeExt(ext)]; ok {
		return l
	}
	return "plaintext"
}

var templates = map[string]string{
	"html": "<!DOCTYPE html>\n<html>\n<head>\n  <title>New Page</title>\n</head>\n<body>\n  \n</body>\n</html>",
	"css":  "/* New CSS file */\n\n",
	"js":   "// New JavaScript file\n\n",
	"json": "{\n  \n}",
	"md":   "# New Document\n\nWelcome to the Markdown editor!\n\n## Features\n\n- **Bold** and *italic*\n- Lists\n- Code with syntax highlighting\n- Tables\n- Checklists\n\n```javascript\nconsole.log(\"Hello World\");\n```\n\n| Column 1 | Column 2 |\n|----------|----------|\n| Data     | Data     |\n\n- [x] Done\n- [ ] Pending\n\n> A quote.\n",
	"txt":  "New text file\n\n",
	"xml":  "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<root>\n  \n</root>",
	"yaml": "# New YAML file\n\n",
	"yml":  "# New YAML file\n\n",
	"ts":   "// New TypeScript file\n\n",
	"py":   "# New Python file\n\n",
	"php":  "<?php\n// New PHP file\n\n?>",
	"sql":  "-- New SQL file\n\n",
	"go":   "package main\n\nfunc main() {\n}\n",
	"lua":  "-- New Lua file\n\n",
}

// TemplateFor returns the initial body for a new file, "" when unknown.
func TemplateFor(ext string) string {
	return templates[NormalizeExt(ext)]
}

// PageTemplate is the body of a page created with the new-page command.
func PageTemplate(title string) string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>` + title + `</title>
    <link rel="stylesheet" href="styles.css">
</head>
<body>
    <div class="container">
        <h1>Welcome to ` + title + `</h1>
        <p>A new page created in CodeSpace.</p>
    </div>
    <script src="script.js"></script>
</body>
</html>`
}

// SeedDefault fills an empty store with the starter project.
func SeedDefault(s *Store) error {
	if _, err := s.CreateFileWithContent("index", "html", "", defaultHTML); err != nil {
		return err
	}
	if _, err := s.CreateFileWithContent("styles", "css", "", defaultCSS); err != nil {
		return err
	}
	if _, err := s.CreateFileWithContent("script", "js", "", defaultJS); err != nil {
		return err
	}
	first := s.Files()[0]
	if _, err := s.Activate(first.ID); err != nil {
		return err
	}
	s.MarkSaved()
	return nil
}

const defaultHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>My Project</title>
    <link rel="stylesheet" href="styles.css">
</head>
<body>
    <div class="container">
        <h1>Welcome to CodeSpace!</h1>
        <p>Edit the files on the left and watch the preview update.</p>
        <button onclick="showMessage()">Click here</button>
    </div>
    <script src="script.js"></script>
</body>
</html>`

const defaultCSS = `* {
    margin: 0;
    padding: 0;
    box-sizing: border-box;
}

body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
    line-height: 1.6;
    color: #333;
    min-height: 100vh;
    display: flex;
    align-items: center;
    justify-content: center;
}

.container {
    background: white;
    padding: 40px;
    border-radius: 12px;
    text-align: center;
    max-width: 500px;
}
`

const defaultJS = `function showMessage() {
    alert('Hello from CodeSpace!');
}
`
