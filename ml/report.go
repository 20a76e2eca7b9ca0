package ml

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type reportLines struct {
	total, correct, incorrect, accuracy string
}

var reportText = map[language.Tag]reportLines{
	language.Indonesian: {
		total:     "Jumlah Data Testing: %d\n",
		correct:   "Jumlah Klasifikasi Tepat: %d\n",
		incorrect: "Jumlah Klasifikasi Tidak Tepat: %d\n",
		accuracy:  "Persentase Akurasi: %.2f%%\n",
	},
	language.English: {
		total:     "Test records: %d\n",
		correct:   "Correct classifications: %d\n",
		incorrect: "Incorrect classifications: %d\n",
		accuracy:  "Accuracy: %.2f%%\n",
	},
}

var reportMatcher = language.NewMatcher([]language.Tag{language.Indonesian, language.English})

// FormatReport renders result for display. Unsupported languages fall back
// to Indonesian.
func FormatReport(result EvaluationResult, lang language.Tag) string {
	tag, _, _ := reportMatcher.Match(lang)
	base, _ := tag.Base()
	tag = language.Make(base.String())
	lines, ok := reportText[tag]
	if !ok {
		tag = language.Indonesian
		lines = reportText[tag]
	}

	p := message.NewPrinter(tag)
	var sb strings.Builder
	sb.WriteString(p.Sprintf(lines.total, result.Total))
	sb.WriteString(p.Sprintf(lines.correct, result.Correct))
	sb.WriteString(p.Sprintf(lines.incorrect, result.Incorrect))
	sb.WriteString(p.Sprintf(lines.accuracy, result.AccuracyPct))
	return sb.String()
}
