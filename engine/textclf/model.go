package textclf

import "github.com/compozy/trainconf/engine/core"

const (
	RobertaModelTarget = core.Target("pytext.contrib.pytext_lib.models.RobertaModel")
	DocModelTarget     = core.Target("pytext.contrib.pytext_lib.models.DocModel")
)

// ModelConf is the base of every model record.
type ModelConf struct{}

type RobertaModelConf struct {
	ModelConf         `koanf:"-"`
	Target            core.Target `koanf:"_target_"            validate:"target"`
	ModelPath         *string     `koanf:"model_path"`
	DenseDim          *int        `koanf:"dense_dim"           validate:"omitempty,gte=0"`
	EmbeddingDim      int         `koanf:"embedding_dim"       validate:"gt=0"`
	OutDim            int         `koanf:"out_dim"             validate:"gt=0"`
	VocabSize         int         `koanf:"vocab_size"          validate:"gt=0"`
	NumAttentionHeads int         `koanf:"num_attention_heads" validate:"gt=0"`
	NumEncoderLayers  int         `koanf:"num_encoder_layers"  validate:"gt=0"`
	OutputDropout     float64     `koanf:"output_dropout"      validate:"gte=0,lte=1"`
	Bias              bool        `koanf:"bias"`
}

func DefaultRobertaModelConf() RobertaModelConf {
	denseDim := 0
	return RobertaModelConf{
		Target:            RobertaModelTarget,
		DenseDim:          &denseDim,
		EmbeddingDim:      32,
		OutDim:            2,
		VocabSize:         100,
		NumAttentionHeads: 1,
		NumEncoderLayers:  1,
		OutputDropout:     0.4,
		Bias:              true,
	}
}

// DocModelConf configures a DocNN classifier over pretrained word embeddings.
type DocModelConf struct {
	ModelConf                `koanf:"-"`
	Target                   core.Target `koanf:"_target_"                   validate:"target"`
	PretrainedEmbeddingsPath string      `koanf:"pretrained_embeddings_path" validate:"required"`
	EmbeddingDim             int         `koanf:"embedding_dim"              validate:"required,gt=0"`
	MlpLayerDims             []int       `koanf:"mlp_layer_dims"             validate:"dive,gt=0"`
	LowercaseTokens          bool        `koanf:"lowercase_tokens"`
	SkipHeader               bool        `koanf:"skip_header"`
	Delimiter                string      `koanf:"delimiter"`
	KernelNum                int         `koanf:"kernel_num"                 validate:"gt=0"`
	KernelSizes              []int       `koanf:"kernel_sizes"               validate:"dive,gt=0"`
	PoolingType              string      `koanf:"pooling_type"               validate:"oneof=max mean none"`
	Dropout                  float64     `koanf:"dropout"                    validate:"gte=0,lte=1"`
	DenseDim                 int         `koanf:"dense_dim"                  validate:"gte=0"`
	DecoderHiddenDims        []int       `koanf:"decoder_hidden_dims"        validate:"dive,gt=0"`
	OutDim                   int         `koanf:"out_dim"                    validate:"gt=0"`
}

// DefaultDocModelConf leaves the embedding path and size unset.
func DefaultDocModelConf() DocModelConf {
	return DocModelConf{
		Target:                   DocModelTarget,
		PretrainedEmbeddingsPath: core.Missing,
		MlpLayerDims:             []int{},
		SkipHeader:               true,
		Delimiter:                " ",
		KernelNum:                100,
		KernelSizes:              []int{},
		PoolingType:              "max",
		Dropout:                  0.4,
		DecoderHiddenDims:        []int{},
		OutDim:                   2,
	}
}
