package textclf

import (
	"fmt"

	"github.com/compozy/trainconf/engine/store"
)

func init() { //nolint:gochecknoinits // populate the process-wide store on import
	if err := Register(store.Instance()); err != nil {
		panic(fmt.Sprintf("textclf: failed to register configs: %v", err))
	}
}

type registration struct {
	group string
	name  string
	node  any
}

func registrations() []registration {
	return []registration{
		{"data", "sst2", DefaultDataConf()},
		{"data", "sst2_dummy", DefaultDataConf()},

		{"schema/task/transform", "doc_transform", DefaultDocTransformConf()},
		{"task/transform", "doc_transform", DefaultDocTransformConf()},
		{"schema/task/transform", "roberta_transform", DefaultRobertaTransformConf()},
		{"task/transform", "roberta_transform", DefaultRobertaTransformConf()},
		{"schema/task/transform", "xlmr_transform", DefaultXlmrTransformConf()},
		{"task/transform", "xlmr_transform", DefaultXlmrTransformConf()},
		{"task/transform", "xlmr_dummy_transform", DefaultXlmrTransformConf()},

		{"schema/task/model", "xlmr", DefaultRobertaModelConf()},
		{"task/model", "xlmr_base", DefaultRobertaModelConf()},
		{"task/model", "xlmr_dummy", DefaultRobertaModelConf()},
		{"schema/task/model", "doc_model", DefaultDocModelConf()},
		{"task/model", "doc_model_dummy", DefaultDocModelConf()},
		{"task/model", "doc_model_with_spm", DefaultDocModelConf()},
		{"task/model", "doc_model_with_xlu", DefaultDocModelConf()},

		{"task/optim", "adamw", DefaultOptimConf()},
		{"task/optim", "fairseq_adam", DefaultOptimConf()},

		{"", "config", DefaultDocClassificationConfig()},

		{"schema/task/datamodule", "doc_classification", DefaultDocClassificationDataModuleConf()},
		{"task/datamodule", "doc_classification", DefaultDocClassificationDataModuleConf()},
		{"task/datamodule", "doc_classification_dummy", DefaultDocClassificationDataModuleConf()},

		{"schema/task/metric", "classification_metric_reporter", DefaultClassificationMetricReporterConf()},
		{"task/metric", "classification_metric_reporter", DefaultClassificationMetricReporterConf()},

		{"", "pytext_config", DefaultPyTextConf()},
		{"", "xlmr_classifier_sst2", DefaultPyTextConf()},

		// Groups selected by the "config" defaults list.
		{"transform", "roberta", DefaultRobertaTransformConf()},
		{"model", "xlmr_base", DefaultRobertaModelConf()},
		{"optim", "fairseq_adam", DefaultOptimConf()},
	}
}

// Register adds every text classification record to s. Trainer variants are
// registered by the trainer package.
func Register(s *store.Store) error {
	for _, r := range registrations() {
		if err := s.Register(r.group, r.name, r.node); err != nil {
			return fmt.Errorf("failed to register %s/%s: %w", r.group, r.name, err)
		}
	}
	// Records only reachable through a _target_ nested in another record.
	for _, record := range []any{DefaultPairTransformConf(), DefaultTaskConf()} {
		if err := s.IndexTarget(record); err != nil {
			return err
		}
	}
	return nil
}
