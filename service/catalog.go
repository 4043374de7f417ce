package service

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DiseaseInfo is the static text returned alongside a label.
type DiseaseInfo struct {
	Description    string `yaml:"description" json:"description"`
	Recommendation string `yaml:"recommendation" json:"recommendation"`
}

// Class is one entry of a catalog file, in model output order.
type Class struct {
	Label       string `yaml:"label"`
	DiseaseInfo `yaml:",inline"`
}

// Catalog maps model output indices to labels and labels to disease info.
// It is immutable once built.
type Catalog struct {
	labels []string
	info   map[string]DiseaseInfo
}

var defaultClasses = []Class{
	{
		Label: "Tomato___Early_blight",
		DiseaseInfo: DiseaseInfo{
			Description:    "Maladie fongique causée par Alternaria solani.",
			Recommendation: "Utiliser un fongicide à base de cuivre et retirer les feuilles infectées.",
		},
	},
	{
		Label: "Tomato___Late_blight",
		DiseaseInfo: DiseaseInfo{
			Description:    "Maladie causée par Phytophthora infestans.",
			Recommendation: "Appliquer un traitement antifongique et éviter l'humidité excessive.",
		},
	},
	{
		Label: "Tomato___Healthy",
		DiseaseInfo: DiseaseInfo{
			Description:    "La plante est en bonne santé.",
			Recommendation: "Aucune action nécessaire.",
		},
	},
}

// DefaultCatalog returns the classes the shipped tomato leaf model was trained on.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultClasses)
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog validates classes and builds a catalog. Every label must be
// non-empty, unique and carry both texts.
func NewCatalog(classes []Class) (*Catalog, error) {
	if len(classes) == 0 {
		return nil, errors.New("catalog has no classes")
	}
	c := &Catalog{
		labels: make([]string, 0, len(classes)),
		info:   make(map[string]DiseaseInfo, len(classes)),
	}
	for i, cl := range classes {
		if cl.Label == "" {
			return nil, fmt.Errorf("class %d: empty label", i)
		}
		if _, dup := c.info[cl.Label]; dup {
			return nil, fmt.Errorf("class %d: duplicate label %q", i, cl.Label)
		}
		if cl.Description == "" || cl.Recommendation == "" {
			return nil, fmt.Errorf("class %d (%s): missing description or recommendation", i, cl.Label)
		}
		c.labels = append(c.labels, cl.Label)
		c.info[cl.Label] = cl.DiseaseInfo
	}
	return c, nil
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Classes []Class `yaml:"classes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(doc.Classes)
}

func (c *Catalog) Len() int { return len(c.labels) }

func (c *Catalog) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// Resolve assembles the prediction for a model output index.
func (c *Catalog) Resolve(index int, confidence float32) (*Prediction, error) {
	if index < 0 || index >= len(c.labels) {
		return nil, fmt.Errorf("class index %d out of range [0,%d)", index, len(c.labels))
	}
	label := c.labels[index]
	info, ok := c.info[label]
	if !ok {
		return nil, fmt.Errorf("no disease info for label %q", label)
	}
	return &Prediction{
		Label:          label,
		Confidence:     float64(confidence),
		Description:    info.Description,
		Recommendation: info.Recommendation,
	}, nil
}
