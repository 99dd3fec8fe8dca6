package inference

// Metadata lists the features the trained models consume.
type Metadata struct {
	NumericFeatures     []string `json:"numeric_features" yaml:"numeric_features"`
	CategoricalFeatures []string `json:"categorical_features" yaml:"categorical_features"`
}

// Required returns numeric features followed by categorical features, each in
// declared order.
func (m *Metadata) Required() []string {
	out := make([]string, 0, len(m.NumericFeatures)+len(m.CategoricalFeatures))
	out = append(out, m.NumericFeatures...)
	return append(out, m.CategoricalFeatures...)
}
