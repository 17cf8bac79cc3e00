package mark

import "image/color"

var palette = []color.NRGBA{
	{255, 0, 0, 255},
	{0, 0, 255, 255},
	{0, 255, 0, 255},
	{255, 255, 0, 255},
	{255, 0, 255, 255},
	{0, 255, 255, 255},
	{255, 128, 0, 255},
	{128, 0, 255, 255},
	{0, 128, 128, 255},
	{128, 128, 0, 255},
	{255, 102, 178, 255},
	{102, 178, 255, 255},
}

// ClassColour returns the palette colour for a class id; ids wrap around the palette
func ClassColour(classID int) color.NRGBA {
	if classID < 0 {
		classID = -classID
	}
	return palette[classID%len(palette)]
}
