package storage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

// Fixtures is the YAML document used to seed a MemoryStore or a cache tier
type Fixtures struct {
	BioseqInfo []model.BioseqRecord `yaml:"bioseq_info"`
	Si2csi     []model.Si2csiRecord `yaml:"si2csi"`
	BlobProps  []model.BlobProps    `yaml:"blob_props"`
	BlobChunks []FixtureChunk       `yaml:"blob_chunks"`
}

// FixtureChunk carries chunk data as text
type FixtureChunk struct {
	BlobID model.BlobID `yaml:"blob_id"`
	Index  int32        `yaml:"index"`
	Data   string       `yaml:"data"`
}

func (c FixtureChunk) chunk() model.BlobChunk {
	return model.BlobChunk{BlobID: c.BlobID, Index: c.Index, Data: []byte(c.Data)}
}

// LoadFixtures reads fixtures from a YAML file
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes and sanity checks a fixtures document
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	for i, rec := range f.BioseqInfo {
		if rec.Accession == "" {
			return nil, fmt.Errorf("bioseq_info[%d]: accession is required", i)
		}
	}
	for i, rec := range f.Si2csi {
		if rec.SecSeqID == "" || rec.Accession == "" {
			return nil, fmt.Errorf("si2csi[%d]: sec_seq_id and accession are required", i)
		}
	}
	return &f, nil
}
