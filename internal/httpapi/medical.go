package httpapi

import (
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/Sanjarbek17/MedAI/internal/classify"
	"github.com/Sanjarbek17/MedAI/internal/models"
)

// prediction mirrors the response shape the clients already consume:
// confidences as whole percentages plus a per-class breakdown.
type prediction struct {
	Class      string `json:"class"`
	Confidence int    `json:"confidence"`
	Covid      int    `json:"covid"`
	Normal     int    `json:"normal"`
	Pneumonia  int    `json:"pneumonia"`
}

func (s *Server) handleChestCheck(w http.ResponseWriter, r *http.Request) {
	s.classifyWith(w, r, classify.ModelChestCheck, chestPrediction)
}

func (s *Server) handleFourClasses(w http.ResponseWriter, r *http.Request) {
	s.classifyWith(w, r, classify.ModelFourClasses, fourClassPrediction)
}

func (s *Server) handleIsCovid(w http.ResponseWriter, r *http.Request) {
	s.classifyWith(w, r, classify.ModelIsCovid, isCovidPrediction)
}

func (s *Server) classifyWith(w http.ResponseWriter, r *http.Request, model string, shape func([]models.Prediction) prediction) {
	if s.classifier == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "X-ray classification not available"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No file provided"})
		return
	}
	defer file.Close()

	preds, err := s.classifier.Classify(r.Context(), model, file)
	if err != nil {
		s.logger.Error("classification failed", "model", model, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "No classification results"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "prediction": shape(preds)})
}

// chestPrediction only reports whether the image looks like a chest X-ray;
// the per-disease breakdown stays zeroed.
func chestPrediction(preds []models.Prediction) prediction {
	top := preds[0]
	return prediction{Class: top.Label, Confidence: percent(top.Confidence)}
}

// fourClassPrediction assigns the top confidence to its class bucket and
// distributes what remains among the runner-up classes.
func fourClassPrediction(preds []models.Prediction) prediction {
	top := preds[0]
	p := prediction{Class: top.Label, Confidence: percent(top.Confidence)}
	setBucket(&p, top.Label, p.Confidence)

	remaining := 100 - p.Confidence
	runners := preds[1:]
	if len(runners) > 2 {
		runners = runners[:2]
	}
	for _, pr := range runners {
		conf := percent(pr.Confidence)
		if conf > remaining {
			conf = remaining
		}
		if bucketOf(&p, pr.Label) == 0 {
			setBucket(&p, pr.Label, conf)
			remaining -= conf
		}
	}
	return p
}

// isCovidPrediction treats the model as binary covid/normal, filling the
// complement from the second result when present.
func isCovidPrediction(preds []models.Prediction) prediction {
	top := preds[0]
	p := prediction{Class: top.Label, Confidence: percent(top.Confidence)}

	complement := 100 - p.Confidence
	if len(preds) > 1 {
		complement = percent(preds[1].Confidence)
	}
	if strings.Contains(strings.ToLower(top.Label), "covid") {
		p.Covid = p.Confidence
		p.Normal = complement
	} else {
		p.Normal = p.Confidence
		p.Covid = complement
	}
	return p
}

func percent(confidence float64) int { return int(confidence * 100) }

func bucketOf(p *prediction, label string) int {
	switch {
	case strings.Contains(strings.ToLower(label), "covid"):
		return p.Covid
	case strings.Contains(strings.ToLower(label), "normal"):
		return p.Normal
	case strings.Contains(strings.ToLower(label), "pneumonia"):
		return p.Pneumonia
	}
	return 0
}

func setBucket(p *prediction, label string, v int) {
	switch {
	case strings.Contains(strings.ToLower(label), "covid"):
		p.Covid = v
	case strings.Contains(strings.ToLower(label), "normal"):
		p.Normal = v
	case strings.Contains(strings.ToLower(label), "pneumonia"):
		p.Pneumonia = v
	}
}

var mockPredictions = []prediction{
	{Class: "Normal", Confidence: 94, Covid: 3, Normal: 94, Pneumonia: 3},
	{Class: "COVID-19", Confidence: 87, Covid: 87, Normal: 8, Pneumonia: 5},
	{Class: "Pneumonia", Confidence: 91, Covid: 4, Normal: 5, Pneumonia: 91},
}

// handlePredict is the demo endpoint kept for the web interface: it fakes
// processing time and returns a canned result.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Filename string `json:"filename"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No filename provided"})
		return
	}
	time.Sleep(2 * time.Second)
	result := mockPredictions[rand.Intn(len(mockPredictions))]
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "prediction": result})
}
