package prompt

import (
	"strings"
	"text/template"
)

const (
	IdentifyName = "identify_rock"
	MatchName    = "match_percentage"
)

const IdentifySystem = `You are an expert geologist specializing in rock and gem identification.
Reply with JSON only, strictly following the schema below. Any text outside the JSON is an error.`

// IdentifyTemplate получает IdentifyData; сама картинка уходит отдельной частью запроса.
const IdentifyTemplate = `You will analyze the provided image and identify the rock or gem.

Based on the image, determine the closest matching rock or gem from your extensive knowledge base. Provide a percentage of similarity (confidence level) between 0 and 100.

Include detailed information about the identified rock, such as its composition, properties, and common uses.

Image: attached ({{.MediaType}}).`

const MatchSystem = `You score rock identifications against a reference database.
Return ONLY the match percentage as a number between 0 and 100.`

const MatchTemplate = `Given the image analysis: """{{.ImageAnalysis}}""",
and the identified rock: """{{.IdentifiedRock}}""",
and the rock database: """{{.RockDatabase}}""",

calculate and return a match percentage that indicates the confidence level of the rock identification as a number between 0 and 100.
Consider the similarity of traits identified in the image analysis with the traits listed in the rock database for the identified rock.

Return ONLY the match percentage as a number with no other explanation or characters.`

const IdentifySchema = `{
  "type": "object",
  "properties": {
    "identification": {
      "type": "object",
      "properties": {
        "closestMatch": {"type": "string", "description": "The name of the closest matching rock or gem."},
        "similarityPercentage": {"type": "number", "description": "The percentage of similarity to the closest match, 0-100."},
        "information": {"type": "string", "description": "Detailed information about the identified rock."}
      }
    }
  }
}`

const MatchSchema = `{
  "type": "object",
  "properties": {
    "matchPercentage": {"type": "number", "description": "Confidence level of the rock identification, 0-100."}
  }
}`

var (
	identifyTmpl = template.Must(template.New(IdentifyName).Parse(IdentifyTemplate))
	matchTmpl    = template.Must(template.New(MatchName).Parse(MatchTemplate))
)

type IdentifyData struct {
	MediaType string
}

type MatchData struct {
	ImageAnalysis  string
	RockDatabase   string
	IdentifiedRock string
}

func RenderIdentify(d IdentifyData) (string, error) { return render(identifyTmpl, d) }

func RenderMatch(d MatchData) (string, error) { return render(matchTmpl, d) }

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
