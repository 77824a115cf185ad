package api

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var immutableFields = []string{"id", "track_kind"}

// decodePatch reads a partial element update. Only the fields present in
// body are set. An "fx" object is merged field by field onto the element's
// current bundle; "fx": null clears it.
func decodePatch(body []byte) (timeline.Patch, error) {
	var p timeline.Patch
	if !gjson.ValidBytes(body) {
		return p, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return p, fmt.Errorf("body must be a JSON object")
	}

	for _, f := range immutableFields {
		if root.Get(f).Exists() {
			return p, fmt.Errorf("%s cannot be changed", f)
		}
	}

	var err error
	num := func(name string) *float64 {
		v := root.Get(name)
		if !v.Exists() || err != nil {
			return nil
		}
		if v.Type != gjson.Number {
			err = fmt.Errorf("%s must be a number", name)
			return nil
		}
		return timeline.Float(v.Float())
	}
	str := func(name string) *string {
		v := root.Get(name)
		if !v.Exists() || err != nil {
			return nil
		}
		if v.Type != gjson.String {
			err = fmt.Errorf("%s must be a string", name)
			return nil
		}
		return timeline.String(v.String())
	}
	flag := func(name string) *bool {
		v := root.Get(name)
		if !v.Exists() || err != nil {
			return nil
		}
		if v.Type != gjson.True && v.Type != gjson.False {
			err = fmt.Errorf("%s must be a boolean", name)
			return nil
		}
		return timeline.Bool(v.Bool())
	}

	p.StartTime = num("start_time")
	p.Duration = num("duration")
	p.TrimStart = num("trim_start")
	p.SourceDuration = num("source_duration")
	p.AllowExtension = flag("allow_extension")
	p.Name = str("name")
	p.SourceRef = str("source_ref")
	p.Content = str("content")
	p.VisualEffect = str("visual_effect")
	p.DisplayColor = str("display_color")
	p.Volume = num("volume")
	p.Muted = flag("muted")
	if err != nil {
		return p, err
	}

	if fx := root.Get("fx"); fx.Exists() {
		switch {
		case fx.Type == gjson.Null:
			p.ClearFX = true
		case fx.IsObject():
			p.FXFields, err = decodeFXFields(fx)
			if err != nil {
				return p, err
			}
		default:
			return p, fmt.Errorf("fx must be an object or null")
		}
	}
	return p, nil
}

func decodeFXFields(fx gjson.Result) (*timeline.FXPatch, error) {
	var fp timeline.FXPatch
	for _, name := range []string{"intensity", "frequency", "zoom_factor", "random_seed"} {
		if v := fx.Get(name); v.Exists() && v.Type != gjson.Number {
			return nil, fmt.Errorf("fx.%s must be a number", name)
		}
	}
	if v := fx.Get("enabled"); v.Exists() {
		if v.Type != gjson.True && v.Type != gjson.False {
			return nil, fmt.Errorf("fx.enabled must be a boolean")
		}
		fp.Enabled = timeline.Bool(v.Bool())
	}
	if v := fx.Get("intensity"); v.Exists() {
		fp.Intensity = timeline.Float(v.Float())
	}
	if v := fx.Get("frequency"); v.Exists() {
		fp.Frequency = timeline.Float(v.Float())
	}
	if v := fx.Get("zoom_factor"); v.Exists() {
		fp.ZoomFactor = timeline.Float(v.Float())
	}
	if v := fx.Get("random_seed"); v.Exists() {
		seed := v.Int()
		fp.RandomSeed = &seed
	}
	return &fp, nil
}
