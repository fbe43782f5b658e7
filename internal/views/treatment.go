package views

import (
	"github.com/fatih/color"

	"github.com/tagging-ai/tagboard/pkg/models"
)

// Treatment is how a sentiment or priority value is rendered.
type Treatment struct {
	Name  string          // palette name: green, gray, red, blue, yellow, slate
	Class string          // CSS classes for the dashboard badge
	Attr  color.Attribute // terminal foreground
}

// Default is used for values outside the known enumerations.
var Default = Treatment{Name: "slate", Class: "bg-slate-500/20 text-slate-400", Attr: color.FgWhite}

var (
	green  = Treatment{Name: "green", Class: "bg-green-500/20 text-green-400", Attr: color.FgGreen}
	gray   = Treatment{Name: "gray", Class: "bg-gray-500/20 text-gray-400", Attr: color.FgHiBlack}
	red    = Treatment{Name: "red", Class: "bg-red-500/20 text-red-400", Attr: color.FgRed}
	blue   = Treatment{Name: "blue", Class: "bg-blue-500/20 text-blue-400", Attr: color.FgBlue}
	yellow = Treatment{Name: "yellow", Class: "bg-yellow-500/20 text-yellow-400", Attr: color.FgYellow}
)

var sentimentTreatments = map[models.Sentiment]Treatment{
	models.SentimentPositive: green,
	models.SentimentNeutral:  gray,
	models.SentimentNegative: red,
}

var priorityTreatments = map[models.Priority]Treatment{
	models.PriorityLow:    blue,
	models.PriorityMedium: yellow,
	models.PriorityHigh:   red,
}

// SentimentTreatment returns the treatment for s, or Default.
func SentimentTreatment(s models.Sentiment) Treatment {
	if t, ok := sentimentTreatments[s]; ok {
		return t
	}
	return Default
}

// PriorityTreatment returns the treatment for p, or Default.
func PriorityTreatment(p models.Priority) Treatment {
	if t, ok := priorityTreatments[p]; ok {
		return t
	}
	return Default
}
