package classifier

import (
	"github.com/rotisserie/eris"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// ClassMetrics holds per-class precision, recall and F1.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Evaluation is the result of scoring predictions against ground truth.
// ConfusionMatrix is indexed [actual][predicted] over labels {0, 1}.
type Evaluation struct {
	Accuracy        float64      `json:"accuracy"`
	HighRisk        ClassMetrics `json:"class_high_risk"`
	LowRisk         ClassMetrics `json:"class_low_risk"`
	ConfusionMatrix [2][2]int    `json:"confusion_matrix"`
}

// Evaluate predicts on X and scores against y.
func (f *Forest) Evaluate(X [][]float64, y []int) (*Evaluation, error) {
	pred, err := f.Predict(X)
	if err != nil {
		return nil, err
	}
	if len(y) != len(pred) {
		return nil, eris.Wrapf(model.ErrValidation, "classifier: %d predictions but %d labels", len(pred), len(y))
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return nil, eris.Wrapf(model.ErrValidation, "classifier: label %d at row %d is not binary", label, i)
		}
	}

	var ev Evaluation
	correct := 0
	for i := range pred {
		ev.ConfusionMatrix[y[i]][pred[i]]++
		if pred[i] == y[i] {
			correct++
		}
	}
	ev.Accuracy = float64(correct) / float64(len(pred))
	ev.HighRisk = classMetrics(ev.ConfusionMatrix, 1)
	ev.LowRisk = classMetrics(ev.ConfusionMatrix, 0)
	return &ev, nil
}

func classMetrics(cm [2][2]int, class int) ClassMetrics {
	other := 1 - class
	tp := cm[class][class]
	fp := cm[other][class]
	fn := cm[class][other]

	m := ClassMetrics{Support: cm[class][0] + cm[class][1]}
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
