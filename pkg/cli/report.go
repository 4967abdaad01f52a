package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/haivivi/voicegate/pkg/voiceauth"
	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// DefaultWidth is the report width used when the terminal width is
// unknown.
const DefaultWidth = 72

// Reporter renders voicegate results as framed reports.
type Reporter struct {
	Styles Styles
	Width  int
}

// NewReporter returns a Reporter with the default theme.
func NewReporter() *Reporter {
	return &Reporter{Styles: NewStyles(DefaultTheme), Width: DefaultWidth}
}

func (r *Reporter) frame(title, status string, sections ...Section) string {
	return Frame{Styles: r.Styles, Title: title, Status: status, Sections: sections}.Render(r.Width)
}

func (r *Reporter) verdict(ok bool, yes, no string) string {
	if ok {
		return r.Styles.Good.Render(yes)
	}
	return r.Styles.Bad.Render(no)
}

// Verification renders a verification result.
func (r *Reporter) Verification(v *voiceprint.VerificationResult) string {
	summary := []string{
		fmt.Sprintf("%-12s %s", "decision", r.verdict(v.Verified, "VERIFIED", "REJECTED")),
		fmt.Sprintf("%-12s %s", "confidence", v.Confidence),
		fmt.Sprintf("%-12s %s %.3f", "score", Bar(v.Score, 20), v.Score),
		fmt.Sprintf("%-12s %.3f (threshold %.3f)", "distance", v.Distance, v.Threshold),
	}
	if v.Reason != "" {
		summary = append(summary, fmt.Sprintf("%-12s %s", "reason", r.Styles.Warn.Render(v.Reason)))
	}
	if v.Transcript != "" {
		summary = append(summary, fmt.Sprintf("%-12s %q", "transcript", v.Transcript))
	}
	sections := []Section{{Label: "Decision", Lines: summary}}

	if len(v.Scores) > 0 {
		var lines []string
		for _, k := range slices.Sorted(maps.Keys(v.Scores)) {
			lines = append(lines, fmt.Sprintf("%-12s %s %.3f", k, Bar(v.Scores[k], 20), v.Scores[k]))
		}
		sections = append(sections, Section{Label: "Scores", Lines: lines})
	}
	if v.Quality != nil {
		sections = append(sections, Section{Label: "Quality", Lines: r.qualityLines(*v.Quality)})
	}
	return r.frame("verify "+v.User, string(v.Mode), sections...)
}

func (r *Reporter) qualityLines(q voiceprint.QualityReport) []string {
	lines := []string{
		fmt.Sprintf("%-12s %s", "gate", r.verdict(q.Passes, "pass", "fail")),
		fmt.Sprintf("%-12s %.1f%%", "speech", q.SpeechRatio*100),
		fmt.Sprintf("%-12s %.1f dB", "snr", q.SNR),
		fmt.Sprintf("%-12s %.2f s", "duration", q.Duration),
	}
	for _, reason := range q.Reasons {
		lines = append(lines, r.Styles.Warn.Render("• "+reason))
	}
	return lines
}

// Enrollment renders an enrollment session result.
func (r *Reporter) Enrollment(e *voiceauth.EnrollResult) string {
	ok := e.Profile != nil
	lines := []string{
		fmt.Sprintf("%-12s %s", "result", r.verdict(ok, "ENROLLED", "FAILED")),
		fmt.Sprintf("%-12s %d of %d attempts", "accepted", e.Accepted, e.Attempts),
	}
	if ok {
		lines = append(lines,
			fmt.Sprintf("%-12s %.1f Hz", "f0", e.Profile.Scalars[voiceprint.FeatureF0Mean].Mean),
			fmt.Sprintf("%-12s %.12s", "hash", e.Profile.Hash))
	}
	sections := []Section{{Label: "Session", Lines: lines}}
	if len(e.Rejected) > 0 {
		var rej []string
		for _, x := range e.Rejected {
			rej = append(rej, fmt.Sprintf("#%d %s", x.Attempt, x.Reason))
		}
		sections = append(sections, Section{Label: "Rejected", Lines: rej})
	}
	if ok && len(e.Profile.Transcripts) > 0 {
		sections = append(sections, Section{Label: "Transcripts", Lines: e.Profile.Transcripts})
	}
	return r.frame("enroll "+e.User, e.ID, sections...)
}

// Analysis renders a clip analysis.
func (r *Reporter) Analysis(a *voiceauth.Analysis) string {
	info := []string{
		fmt.Sprintf("%-12s %d Hz, %d ch, %.2f s", "format", a.SampleRate, a.Channels, a.Duration),
	}
	sections := []Section{
		{Label: "Clip", Lines: info},
		{Label: "Enrollment gate", Lines: r.qualityLines(a.Enroll)},
		{Label: "Verification gate", Lines: r.qualityLines(a.Verify)},
	}
	if a.Features != nil {
		scalars := a.Features.Scalars()
		var lines []string
		for _, k := range slices.Sorted(maps.Keys(scalars)) {
			lines = append(lines, fmt.Sprintf("%-24s %10.3f", k, scalars[k]))
		}
		sections = append(sections, Section{Label: "Features", Lines: lines})
	} else {
		sections = append(sections, Section{Label: "Features", Lines: []string{r.Styles.Bad.Render(a.FeatureError)}})
	}
	return r.frame("analyze", "", sections...)
}

// ProfileCheck renders a profile health report.
func (r *Reporter) ProfileCheck(c *voiceauth.ProfileCheck) string {
	lines := []string{
		fmt.Sprintf("%-12s %s", "status", r.verdict(c.OK(), "OK", "UNUSABLE")),
		fmt.Sprintf("%-12s %s", "integrity", r.verdict(c.Integrity, "ok", "failed")),
		fmt.Sprintf("%-12s %s", "compatible", r.verdict(c.Compatible, "ok", "no")),
		fmt.Sprintf("%-12s %s", "version", c.Version),
		fmt.Sprintf("%-12s %d", "samples", c.SampleCount),
		fmt.Sprintf("%-12s %s", "created", c.CreatedAt.Format("2006-01-02 15:04:05Z07:00")),
		fmt.Sprintf("%-12s %t", "backup", c.HasBackup),
	}
	sections := []Section{{Label: "Profile", Lines: lines}}
	if len(c.Problems) > 0 {
		sections = append(sections, Section{Label: "Problems", Lines: c.Problems})
	}
	return r.frame("profile "+c.User, "", sections...)
}

// Profile renders a stored profile summary.
func (r *Reporter) Profile(p *voiceprint.Profile) string {
	var lines []string
	for _, k := range slices.Sorted(maps.Keys(p.Scalars)) {
		s := p.Scalars[k]
		lines = append(lines, fmt.Sprintf("%-24s %10.3f ± %.3f", k, s.Mean, s.Std))
	}
	meta := []string{
		fmt.Sprintf("%-12s %s", "version", p.Version),
		fmt.Sprintf("%-12s %d", "samples", p.SampleCount),
		fmt.Sprintf("%-12s %s", "created", p.CreatedAt.Format("2006-01-02 15:04:05Z07:00")),
		fmt.Sprintf("%-12s %.12s", "hash", p.Hash),
	}
	return r.frame("profile "+p.User, "", Section{Label: "Metadata", Lines: meta}, Section{Label: "Scalar features", Lines: lines})
}

// Users renders the enrolled user list.
func (r *Reporter) Users(users []string) string {
	if len(users) == 0 {
		return r.frame("enrolled users", "0", Section{Label: "Users", Lines: []string{r.Styles.Help.Render("none")}})
	}
	return r.frame("enrolled users", fmt.Sprint(len(users)), Section{Label: "Users", Lines: users})
}
