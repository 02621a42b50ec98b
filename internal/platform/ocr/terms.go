package ocr

import "strings"

// medicalTerms is the fixed vocabulary scanned for in transcripts. The list
// leans toward terms that matter at intake: complaints, findings, and the
// condition keywords triage scoring reacts to.
var medicalTerms = []string{
	"chest pain",
	"shortness of breath",
	"difficulty breathing",
	"heart attack",
	"stroke",
	"trauma",
	"fracture",
	"bleeding",
	"hemorrhage",
	"burn",
	"overdose",
	"poisoning",
	"allergic reaction",
	"unconscious",
	"seizure",
	"fever",
	"hypertension",
	"hypotension",
	"diabetes",
	"asthma",
	"nausea",
	"vomiting",
	"dizziness",
	"headache",
	"abdominal pain",
}

// ExtractTerms returns the known medical terms present in transcript, in
// vocabulary order, each at most once. Matching is case-insensitive.
func ExtractTerms(transcript string) []string {
	lower := strings.ToLower(transcript)
	var found []string
	for _, term := range medicalTerms {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	return found
}
