// Package sheet renders the human-readable execution sheet that tells an
// editor how to turn each highlight into a finished reel.
package sheet

import (
	"strings"
	"text/template"
	"time"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
)

// ComplianceStatement closes every sheet.
const ComplianceStatement = "These elements make the reels a meaningful transformation of the source, " +
	"not a re-upload, and keep them within originality guidelines for short-form platforms."

const rule = "===================================================================================================="

// TemplateData is what the sheet template sees.
type TemplateData struct {
	Rule        string
	GeneratedAt string
	Source      string
	Count       int
	Reels       []Reel
	Compliance  string
}

// Reel is one highlight flattened for rendering. Empty strings and nil
// lists are omitted from the output.
type Reel struct {
	Number         int
	Title          string
	Hook           string
	Start          string
	End            string
	Emotion        string
	CutSequence    string
	Scenes         []string
	Voiceover      string
	VoiceoverStyle string
	Original       []string
	Info           []string
	Emphasis       []string
	Editing        string
	Originality    []string
	Reason         string
}

const sheetTemplate = `{{.Rule}}
REEL EDIT EXECUTION SHEET (originality-compliant)
{{.Rule}}
Generated: {{.GeneratedAt}}
Source video: {{.Source}}
Reels: {{.Count}}
Self-check: every reel below carries voiceover, creative editing, info captions and new information.
{{range .Reels}}
{{$.Rule}}
[Reel {{.Number}}] {{.Title}}
{{$.Rule}}
Hook line: "{{.Hook}}"
Time range: {{.Start}} - {{.End}}
{{if .Emotion}}Target emotion: {{.Emotion}}
{{end}}
Cut sequence:
   {{.CutSequence}}

Scenes:
{{range $i, $s := .Scenes}}   Scene {{inc $i}}: {{$s}}
{{end}}
Voiceover:
{{if .Voiceover}}   {{.Voiceover}}
{{if .VoiceoverStyle}}   Style: {{.VoiceoverStyle}}
{{end}}{{else}}   (none)
{{end}}
Subtitle plan:
{{if .Original}}   Original lines:
{{range .Original}}     - {{.}}
{{end}}{{end}}{{if .Info}}   Info captions:
{{range .Info}}     - {{.}}
{{end}}{{end}}{{if .Emphasis}}   Emphasis:
{{range .Emphasis}}     - {{.}}
{{end}}{{end}}
Editing rationale:
   {{.Editing}}

{{if .Originality}}Originality elements:
{{range .Originality}}   - {{.}}
{{end}}
{{end}}Selection reason: {{.Reason}}
{{end}}
{{.Rule}}
ORIGINALITY NOTES
{{.Rule}}
This plan includes the following originality elements:
   + Unique voiceover or narration with new analysis, not a plain translation
   + Creative editing such as non-linear order, contrast and suspense
   + Info captions with character labels, inner thoughts and relationships
   + New information: interpretation, context and takeaways

{{.Compliance}}
`

var tmpl = template.Must(template.New("sheet").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(sheetTemplate))

// Render builds the sheet for hs. The output depends only on its arguments.
func Render(hs []highlights.Spec, sourceLabel string, generatedAt time.Time) string {
	data := TemplateData{
		Rule:        rule,
		GeneratedAt: generatedAt.Format("2006-01-02 15:04:05 MST"),
		Source:      sourceLabel,
		Count:       len(hs),
		Reels:       make([]Reel, 0, len(hs)),
		Compliance:  ComplianceStatement,
	}
	for i, h := range hs {
		data.Reels = append(data.Reels, reelFrom(i+1, h))
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		// the template is static and strings.Builder never fails
		panic(err)
	}
	return b.String()
}

func reelFrom(n int, h highlights.Spec) Reel {
	r := Reel{
		Number:      n,
		Title:       h.Title,
		Hook:        h.HookLine,
		Start:       h.Start.String(),
		End:         h.End.String(),
		Emotion:     h.TargetEmotion.Or(""),
		CutSequence: h.CutSequence,
		Scenes:      h.SceneDescriptions,
		Original:    h.SubtitlePlan.OriginalLines,
		Info:        h.SubtitlePlan.InfoCaptions.Or(nil),
		Emphasis:    h.SubtitlePlan.EmphasisElements.Or(nil),
		Editing:     h.EditingRationale,
		Originality: h.OriginalityElements.Or(nil),
		Reason:      h.SelectionReason,
	}
	if v, ok := h.VoiceoverScript.Get(); ok && v != "" {
		r.Voiceover = v
		r.VoiceoverStyle = h.VoiceoverStyle.Or("")
	} else if v, ok := h.Voiceover(); ok {
		r.Voiceover = v
	}
	return r
}
