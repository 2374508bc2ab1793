package billing

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var statementTemplate = texttemplate.Must(texttemplate.New("statement").Funcs(texttemplate.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"cell":  func(s string) string { return strings.ReplaceAll(s, "|", `\|`) },
}).Parse(`# Canteen bill: {{cell .EmployeeName}} ({{cell .EmployeeID}})

**Period:** {{.Period}}

{{if .Transactions -}}
| Date | Transaction | Item | Qty | Unit price | Total | Status |
|------|-------------|------|----:|-----------:|------:|--------|
{{range .Transactions -}}
| {{.CreatedAt.Local.Format "2006-01-02"}} | {{.TransactionID}} | {{cell .MenuItemName}} | {{.Quantity}} | {{money .UnitPrice}} | {{money .TotalPrice}} | {{.Status}} |
{{end}}
{{else -}}
No transactions in this period.
{{end}}
**Amount due:** {{money .TotalAmount}}

Active: {{.ActiveCount}}, generated: {{.GeneratedCount}}, paid: {{.PaidCount}}, modified: {{.ModifiedCount}}, inactive: {{.InactiveCount}}
`))

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<main class="statement">
{{.Body}}
</main>
</body>
</html>
`))

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Render produces the statement of b as Markdown and as a standalone HTML
// page.
func Render(b Bill) (string, string, error) {
	var src bytes.Buffer
	if err := statementTemplate.Execute(&src, b); err != nil {
		return "", "", fmt.Errorf("rendering statement: %w", err)
	}

	var body bytes.Buffer
	if err := md.Convert(src.Bytes(), &body); err != nil {
		return "", "", fmt.Errorf("converting statement to html: %w", err)
	}

	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{
		Title: "Canteen bill " + b.Period(),
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return "", "", fmt.Errorf("rendering statement page: %w", err)
	}
	return src.String(), page.String(), nil
}
