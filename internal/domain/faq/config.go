package faq

// Config holds runtime knobs for the FAQ service.
type Config struct {
	Algorithm          Algorithm
	Threshold          float64
	DefaultClinicID    string
	TopRecommendations int
}
