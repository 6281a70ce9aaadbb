package dungeon

import (
	"errors"
	"fmt"
)

// ErrInvalidParams — базовая ошибка некорректной конфигурации генерации.
var ErrInvalidParams = errors.New("некорректные параметры генерации")

// ParamError описывает конкретное некорректное поле.
type ParamError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s=%v (%s)", ErrInvalidParams, e.Field, e.Value, e.Reason)
}

func (e *ParamError) Unwrap() error {
	return ErrInvalidParams
}

// GenerationParams — параметры генерации одного слоя.
// Средние размеры кластеров задают параметры отдельных распределений Пуассона.
type GenerationParams struct {
	Height int `yaml:"height" json:"height"`
	Width  int `yaml:"width" json:"width"`

	MeanDungeonSize float64 `yaml:"mean_dungeon_size" json:"mean_dungeon_size"`
	MeanCoalSize    float64 `yaml:"mean_coal_size" json:"mean_coal_size"`
	MeanGoldSize    float64 `yaml:"mean_gold_size" json:"mean_gold_size"`

	DungeonCount   int `yaml:"dungeon_count" json:"dungeon_count"`
	CoalPatchCount int `yaml:"coal_patch_count" json:"coal_patch_count"`
	GoldPatchCount int `yaml:"gold_patch_count" json:"gold_patch_count"`

	EnemyChance float64 `yaml:"enemy_chance" json:"enemy_chance"`

	ShopCount      int  `yaml:"shop_count" json:"shop_count"`
	PrefabEntrance bool `yaml:"prefab_entrance" json:"prefab_entrance"`
}

// DefaultParams возвращает параметры слоя по умолчанию (128x128, 3 пещеры, по 20 залежей)
func DefaultParams() GenerationParams {
	return GenerationParams{
		Height:          128,
		Width:           128,
		MeanDungeonSize: 40,
		MeanCoalSize:    5,
		MeanGoldSize:    5,
		DungeonCount:    3,
		CoalPatchCount:  20,
		GoldPatchCount:  20,
		EnemyChance:     0.1,
		ShopCount:       1,
	}
}

// Validate проверяет параметры. Значения никогда не подрезаются.
func (p GenerationParams) Validate() error {
	switch {
	case p.Height <= 0:
		return &ParamError{Field: "height", Value: p.Height, Reason: "должно быть > 0"}
	case p.Width <= 0:
		return &ParamError{Field: "width", Value: p.Width, Reason: "должно быть > 0"}
	case p.MeanDungeonSize < 0:
		return &ParamError{Field: "mean_dungeon_size", Value: p.MeanDungeonSize, Reason: "среднее Пуассона не может быть отрицательным"}
	case p.MeanCoalSize < 0:
		return &ParamError{Field: "mean_coal_size", Value: p.MeanCoalSize, Reason: "среднее Пуассона не может быть отрицательным"}
	case p.MeanGoldSize < 0:
		return &ParamError{Field: "mean_gold_size", Value: p.MeanGoldSize, Reason: "среднее Пуассона не может быть отрицательным"}
	case p.DungeonCount < 0:
		return &ParamError{Field: "dungeon_count", Value: p.DungeonCount, Reason: "не может быть отрицательным"}
	case p.CoalPatchCount < 0:
		return &ParamError{Field: "coal_patch_count", Value: p.CoalPatchCount, Reason: "не может быть отрицательным"}
	case p.GoldPatchCount < 0:
		return &ParamError{Field: "gold_patch_count", Value: p.GoldPatchCount, Reason: "не может быть отрицательным"}
	case p.EnemyChance < 0 || p.EnemyChance > 1:
		return &ParamError{Field: "enemy_chance", Value: p.EnemyChance, Reason: "вероятность вне [0, 1]"}
	case p.ShopCount < 0:
		return &ParamError{Field: "shop_count", Value: p.ShopCount, Reason: "не может быть отрицательным"}
	}
	return nil
}
