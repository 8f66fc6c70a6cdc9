package scorer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/bangers/pkg/domain"
)

func kserveServer(t *testing.T, calls *int32, outputs []v2Tensor) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/models/banger/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /v2/models/banger/infer", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		var req v2Request
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || !assert.Len(t, req.Inputs, 1) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "float_input", req.Inputs[0].Name)
		assert.Equal(t, "FP32", req.Inputs[0].Datatype)
		assert.Equal(t, []int{2, 12}, req.Inputs[0].Shape)
		assert.Len(t, req.Inputs[0].Data, 24)
		assert.InDelta(t, 2400.0, req.Inputs[0].Data[10], 0)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v2Response{ModelName: "banger", Outputs: outputs})
	})
	return httptest.NewServer(mux)
}

func TestKServe_Predict(t *testing.T) {
	var calls int32
	ts := kserveServer(t, &calls, []v2Tensor{
		{Name: "label", Data: []float64{1, 0}},
		{Name: "probabilities", Shape: []int{2, 2}, Datatype: "FP32", Data: []float64{0.2, 0.8, 0.9, 0.1}},
	})
	defer ts.Close()

	ks, err := NewKServe(KServeParams{Endpoint: ts.URL + "/", Model: "banger"})
	require.NoError(t, err)
	require.NoError(t, ks.Ready(context.Background()))

	res, err := ks.Predict(context.Background(), [][]float64{gameSevenRow, dailyDuncsRow})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.InDelta(t, 0.8, res[0]["yes"], 1e-9)
	assert.InDelta(t, 0.2, res[0]["no"], 1e-9)
	assert.InDelta(t, 0.1, res[1]["yes"], 1e-9)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	info := ks.Info()
	assert.Equal(t, BackendKServe, info.Backend)
	assert.Equal(t, "banger", info.Name)
}

func TestKServe_PredictEmptySkipsServer(t *testing.T) {
	var calls int32
	ts := kserveServer(t, &calls, nil)
	defer ts.Close()

	ks, err := NewKServe(KServeParams{Endpoint: ts.URL, Model: "banger"})
	require.NoError(t, err)
	res, err := ks.Predict(context.Background(), [][]float64{})
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestKServe_PredictBadResponses(t *testing.T) {
	tests := []struct {
		name    string
		outputs []v2Tensor
		errMsg  string
	}{
		{name: "missing output", outputs: []v2Tensor{{Name: "label", Data: []float64{1, 0}}}, errMsg: `no "probabilities" output`},
		{name: "short output", outputs: []v2Tensor{{Name: "probabilities", Data: []float64{0.5, 0.5}}}, errMsg: "has 2 values, expected 4"},
		{name: "not a probability", outputs: []v2Tensor{{Name: "probabilities", Data: []float64{0.5, 0.5, -2, 3}}},
			errMsg: "outside [0,1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			ts := kserveServer(t, &calls, tt.outputs)
			defer ts.Close()

			ks, err := NewKServe(KServeParams{Endpoint: ts.URL, Model: "banger"})
			require.NoError(t, err)
			_, err = ks.Predict(context.Background(), [][]float64{gameSevenRow, dailyDuncsRow})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestKServe_PredictServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"shape mismatch"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	ks, err := NewKServe(KServeParams{Endpoint: ts.URL, Model: "banger"})
	require.NoError(t, err)
	_, err = ks.Predict(context.Background(), [][]float64{gameSevenRow})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=400")
	assert.Contains(t, err.Error(), "shape mismatch")

	_, err = ks.Predict(context.Background(), [][]float64{{1, 2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 0 has 2 values, model expects 12")
}

func TestNewKServe_Validation(t *testing.T) {
	_, err := NewKServe(KServeParams{Endpoint: "http://localhost:8000"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrModelLoad)
}
