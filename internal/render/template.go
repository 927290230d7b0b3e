package render

import "html/template"

var documentTemplate = template.Must(template.New("newsletter").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-gray-100 p-4 md:p-8">
<div class="{{.CardCls}}">
<header class="{{.HeaderCls}}">
<h1 class="{{.MainTitle}}">{{.Title}}</h1>
<p class="text-center text-sm text-gray-500 mt-2">Subject: {{.Subject}}</p>
</header>
<main class="p-6">
{{- range .Articles}}
<div class="{{.Class}}">
{{- if .ImageURL}}
<div style="position: relative; width: 100%; padding-bottom: 56.25%; overflow: hidden; border-radius: 0.5rem; margin-bottom: 1rem;">
<img src="{{.ImageURL}}" alt="{{if .Title}}{{.Title}}{{else}}Article Image{{end}}" style="position: absolute; top: 0; left: 0; width: 100%; height: 100%; object-fit: cover;">
</div>
{{- end}}
<h3 class="{{.TitleCls}}">{{.Title}}</h3>
<div class="prose prose-sm max-w-none">
{{.Body}}
</div>
{{- if .SourceURL}}
<div style="margin-top: 1rem;">
<a href="{{.SourceURL}}" target="_blank" rel="noopener noreferrer" style="display: inline-block; padding: 0.5rem 1rem; border: 1px solid #e5e7eb; border-radius: 0.375rem; text-decoration: none; color: #374151; font-size: 0.875rem;">Read the original article</a>
</div>
{{- end}}
</div>
{{- if not .Last}}
<hr class="my-6 border-gray-200">
{{- end}}
{{- end}}
<div class="{{.FooterCls}}">
<p>&copy; {{.Year}} <a href="{{.FooterURL}}" target="_blank" rel="noopener noreferrer" style="text-decoration: underline; color: #3b82f6;">{{.FooterName}}</a>. All rights reserved.</p>
</div>
</main>
</div>
</body>
</html>
`))
