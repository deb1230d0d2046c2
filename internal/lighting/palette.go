package lighting

// Palette is the four-colour palette of one frame.
type Palette struct {
	Primary   HSL           `json:"primary"`
	Secondary HSL           `json:"secondary"`
	Accent    HSL           `json:"accent"`
	Ambient   HSL           `json:"ambient"`
	Strategy  ColorStrategy `json:"strategy"`
}

// Color returns the colour in a palette slot. Unknown roles return Primary.
func (p Palette) Color(role PaletteRole) HSL {
	switch role {
	case RoleSecondary:
		return p.Secondary
	case RoleAccent:
		return p.Accent
	case RoleAmbient:
		return p.Ambient
	default:
		return p.Primary
	}
}

// Map applies fn to every slot and returns the result.
func (p Palette) Map(fn func(HSL, PaletteRole) HSL) Palette {
	p.Primary = fn(p.Primary, RolePrimary)
	p.Secondary = fn(p.Secondary, RoleSecondary)
	p.Accent = fn(p.Accent, RoleAccent)
	p.Ambient = fn(p.Ambient, RoleAmbient)
	return p
}
