package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanno79/idea-tracker/internal/config"
)

func TestServe(t *testing.T) {
	errBoom := errors.New("listen failed")
	errLoad := errors.New("bad settings")

	tests := []struct {
		name      string
		results   []error
		loadErrAt int
		wantErr   error
		wantRuns  int
		wantLoads int
	}{
		{name: "clean shutdown", results: []error{nil}, loadErrAt: -1, wantRuns: 1, wantLoads: 1},
		{name: "restart after settings change", results: []error{errSettingsChanged, errSettingsChanged, nil}, loadErrAt: -1, wantRuns: 3, wantLoads: 3},
		{name: "run error stops", results: []error{errSettingsChanged, errBoom}, loadErrAt: -1, wantErr: errBoom, wantRuns: 2, wantLoads: 2},
		{name: "reload error stops", results: []error{errSettingsChanged}, loadErrAt: 1, wantErr: errLoad, wantRuns: 1, wantLoads: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loads, runs := 0, 0
			load := func() (*config.Config, error) {
				defer func() { loads++ }()
				if loads == tt.loadErrAt {
					return nil, errLoad
				}
				return config.Default(), nil
			}
			run := func(cfg *config.Config) error {
				require.NotNil(t, cfg)
				err := tt.results[runs]
				runs++
				return err
			}

			err := serve(load, run)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantRuns, runs)
			assert.Equal(t, tt.wantLoads, loads)
		})
	}
}
