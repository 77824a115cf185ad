package timeline

// Patch is a partial element update. Nil fields are left unchanged.
type Patch struct {
	StartTime      *float64
	Duration       *float64
	TrimStart      *float64
	SourceDuration *float64
	AllowExtension *bool
	Name           *string
	SourceRef      *string
	Content        *string
	VisualEffect   *string
	DisplayColor   *string
	Volume         *float64
	Muted          *bool
	FX             *FX
	ClearFX        bool

	// FXFields is merged onto the element's current bundle after FX and
	// ClearFX are applied.
	FXFields *FXPatch
}

// FXPatch sets individual FX fields; nil fields are left as they are.
type FXPatch struct {
	Enabled    *bool
	Intensity  *float64
	Frequency  *float64
	ZoomFactor *float64
	RandomSeed *int64
}

func (p FXPatch) apply(fx *FX) {
	if p.Enabled != nil {
		fx.Enabled = *p.Enabled
	}
	if p.Intensity != nil {
		fx.Intensity = *p.Intensity
	}
	if p.Frequency != nil {
		fx.Frequency = *p.Frequency
	}
	if p.ZoomFactor != nil {
		fx.ZoomFactor = *p.ZoomFactor
	}
	if p.RandomSeed != nil {
		fx.RandomSeed = *p.RandomSeed
	}
}

// Float returns a pointer to v, for building patches.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Empty reports whether p would change nothing.
func (p Patch) Empty() bool {
	return p.StartTime == nil && p.Duration == nil && p.TrimStart == nil &&
		p.SourceDuration == nil && p.AllowExtension == nil && p.Name == nil &&
		p.SourceRef == nil && p.Content == nil && p.VisualEffect == nil &&
		p.DisplayColor == nil && p.Volume == nil && p.Muted == nil &&
		p.FX == nil && !p.ClearFX && p.FXFields == nil
}

func (p Patch) apply(e *Element) {
	if p.StartTime != nil {
		e.StartTime = *p.StartTime
	}
	if p.Duration != nil {
		e.Duration = *p.Duration
	}
	if p.TrimStart != nil {
		e.TrimStart = *p.TrimStart
	}
	if p.SourceDuration != nil {
		e.SourceDuration = *p.SourceDuration
	}
	if p.AllowExtension != nil {
		e.AllowExtension = *p.AllowExtension
	}
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.SourceRef != nil {
		e.SourceRef = *p.SourceRef
	}
	if p.Content != nil {
		e.Content = *p.Content
	}
	if p.VisualEffect != nil {
		e.VisualEffect = *p.VisualEffect
	}
	if p.DisplayColor != nil {
		e.DisplayColor = *p.DisplayColor
	}
	if p.Volume != nil {
		e.Volume = *p.Volume
	}
	if p.Muted != nil {
		e.Muted = *p.Muted
	}
	if p.ClearFX {
		e.FX = nil
	}
	if p.FX != nil {
		fx := *p.FX
		e.FX = &fx
	}
	if p.FXFields != nil {
		var fx FX
		if e.FX != nil {
			fx = *e.FX
		}
		p.FXFields.apply(&fx)
		e.FX = &fx
	}
}
