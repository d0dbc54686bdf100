// xgb.go
package predictor

import (
	xgboost "github.com/Elvenson/xgboost-go"
	"github.com/Elvenson/xgboost-go/activation"
	"github.com/Elvenson/xgboost-go/inference"
	"github.com/Elvenson/xgboost-go/mat"
	"github.com/pkg/errors"

	"swarmbt/internal"
)

// XGB scores each asset's slice of the feature window with a trained
// xgboost regression model (one row per asset). The model is loaded once;
// prediction failures surface as errors and the engine substitutes equal
// weights.
type XGB struct {
	ensemble *inference.Ensemble
	assets   int
	window   int
}

func NewXGB(modelPath string, assets, window int) (*XGB, error) {
	if assets <= 0 || window <= 0 {
		return nil, internal.InputErrorf("predictor: assets and window must be positive")
	}
	ensemble, err := xgboost.LoadXGBoostFromJSON(modelPath, "", 1, 0, &activation.Raw{})
	if err != nil {
		return nil, errors.Wrapf(err, "load xgboost model %s", modelPath)
	}
	return &XGB{ensemble: ensemble, assets: assets, window: window}, nil
}

func (p *XGB) Predict(features []float64) ([]float64, error) {
	if len(features) != p.assets*p.window {
		return nil, internal.InputErrorf("predictor: feature length %d != assets*window %d",
			len(features), p.assets*p.window)
	}
	vectors := make([]mat.SparseVector, p.assets)
	for a := 0; a < p.assets; a++ {
		row := make(mat.SparseVector, p.window)
		for t := 0; t < p.window; t++ {
			row[t] = float32(features[a*p.window+t])
		}
		vectors[a] = row
	}
	preds, err := p.ensemble.PredictRegression(mat.SparseMatrix{Vectors: vectors}, 0)
	if err != nil {
		return nil, errors.Wrap(err, "xgboost predict")
	}
	if len(preds.Vectors) != p.assets {
		return nil, errors.Errorf("xgboost returned %d rows, want %d", len(preds.Vectors), p.assets)
	}
	out := make([]float64, p.assets)
	for i, vec := range preds.Vectors {
		if vec == nil || len(*vec) == 0 {
			return nil, errors.Errorf("xgboost returned empty row %d", i)
		}
		out[i] = float64((*vec)[0])
	}
	return out, nil
}
