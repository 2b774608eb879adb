package textclf

import "github.com/compozy/trainconf/engine/core"

const (
	OptimTarget                        = core.Target("torch.optim.AdamW")
	ClassificationMetricReporterTarget = core.Target(
		"pytext.contrib.pytext_lib.metrics.metric_reporter.classification_metric_reporter_config_expand",
	)
)

type OptimConf struct {
	Target      core.Target `koanf:"_target_"     validate:"target"`
	LR          float64     `koanf:"lr"           validate:"gt=0"`
	Betas       []float64   `koanf:"betas"        validate:"len=2,dive,gte=0,lt=1"`
	Eps         float64     `koanf:"eps"          validate:"gt=0"`
	WeightDecay float64     `koanf:"weight_decay" validate:"gte=0"`
	Amsgrad     bool        `koanf:"amsgrad"`
}

func DefaultOptimConf() OptimConf {
	return OptimConf{
		Target: OptimTarget,
		LR:     1e-3,
		Betas:  []float64{0.9, 0.999},
		Eps:    1e-8,
	}
}

// MetricReporterConf is the base of every metric reporter record.
type MetricReporterConf struct{}

type ClassificationMetricReporterConf struct {
	MetricReporterConf          `koanf:"-"`
	Target                      core.Target `koanf:"_target_"                       validate:"target"`
	RecallAtPrecisionThresholds []float64   `koanf:"recall_at_precision_thresholds" validate:"dive,gt=0,lte=1"`
}

func DefaultClassificationMetricReporterConf() ClassificationMetricReporterConf {
	return ClassificationMetricReporterConf{
		Target:                      ClassificationMetricReporterTarget,
		RecallAtPrecisionThresholds: []float64{0.2, 0.4, 0.6, 0.8, 0.9},
	}
}
