package model_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"

	"sekolahku_backend/internals/databases/dbtest"
	"sekolahku_backend/internals/features/materials/hierarchy/model"
)

func TestMaterialModel_SchemaParses(t *testing.T) {
	s, err := schema.Parse(&model.MaterialModel{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	f := s.LookUpField("material_class_names")
	require.NotNil(t, f)
	assert.Equal(t, schema.DataType("text[]"), f.DataType)
	assert.Empty(t, s.Relationships.Relations, "kelas bukan relasi")
}

func TestClassList_RoundTrip(t *testing.T) {
	db := dbtest.Open(t)
	subj := dbtest.Subject(t, db, "IPA")

	restricted := dbtest.Material(t, db, subj.SubjectID, "Ekosistem", "7A", "7B")
	open := dbtest.Material(t, db, subj.SubjectID, "Sel")

	var got model.MaterialModel
	require.NoError(t, db.Where("material_id = ?", restricted.MaterialID).First(&got).Error)
	assert.Equal(t, model.ClassList{"7A", "7B"}, got.MaterialClassNames)

	var gotOpen model.MaterialModel
	require.NoError(t, db.Where("material_id = ?", open.MaterialID).First(&gotOpen).Error)
	assert.Nil(t, gotOpen.MaterialClassNames)

	var nulls int64
	require.NoError(t, db.Model(&model.MaterialModel{}).
		Where("material_class_names IS NULL").Count(&nulls).Error)
	assert.Equal(t, int64(1), nulls)
}

func TestClassList_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   model.ClassList
		want model.ClassList
	}{
		{"nil", nil, nil},
		{"only blanks", model.ClassList{" ", ""}, nil},
		{"trim and dedup", model.ClassList{" 7A ", "7B", "7A"}, model.ClassList{"7A", "7B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}
