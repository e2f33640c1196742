// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"

	"github.com/relabs-tech/dance_edge/internal/classifier"
	"github.com/relabs-tech/dance_edge/internal/config"
	"github.com/relabs-tech/dance_edge/internal/features"
	"github.com/relabs-tech/dance_edge/internal/logging"
)

// LoadArtifacts reads the model, scalers and label table named in cfg.
func LoadArtifacts(cfg *config.Config) (*features.Extractor, *classifier.Classifier, error) {
	minMax, err := features.LoadMinMaxScaler(cfg.MinMaxScalerPath)
	if err != nil {
		return nil, nil, err
	}
	standard, err := features.LoadStandardScaler(cfg.StandardScalerPath)
	if err != nil {
		return nil, nil, err
	}
	ext, err := features.NewExtractor(FeatureConfig(cfg), minMax, standard)
	if err != nil {
		return nil, nil, err
	}

	labels := classifier.DefaultLabels()
	if cfg.LabelsPath != "" {
		if labels, err = classifier.LoadLabels(cfg.LabelsPath); err != nil {
			return nil, nil, err
		}
	}
	model, err := classifier.LoadMLP(cfg.ModelPath)
	if err != nil {
		return nil, nil, err
	}
	if model.InputWidth() != features.Width {
		return nil, nil, fmt.Errorf("model %s: %w: want %d inputs, got %d", cfg.ModelPath, classifier.ErrInputWidth, features.Width, model.InputWidth())
	}
	clf, err := classifier.New(model, labels)
	if err != nil {
		return nil, nil, err
	}

	logging.Component("artifacts").Infof("loaded model %s (%d classes)", cfg.ModelPath, labels.Len())
	return ext, clf, nil
}

// FeatureConfig maps the preprocessing keys onto features.Config.
func FeatureConfig(cfg *config.Config) features.Config {
	return features.Config{
		SampleRateHz:     cfg.SampleRateHz,
		HighPassCornerHz: cfg.HighPassCutoffHz,
		HighPassCorners:  cfg.HighPassCorners,
		SavGolWindow:     cfg.SavGolWindow,
		SavGolOrder:      cfg.SavGolPolyOrder,
	}
}
