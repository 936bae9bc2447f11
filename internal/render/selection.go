/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package render

import (
	"github.com/fogleman/gg"

	"github.com/CGYORK/meme-generator-project/internal/geometry"
)

// DrawSelection strokes the dashed selection frame around bounds and draws
// the delete and resize affordances.
func DrawSelection(dc *gg.Context, bounds geometry.Rect) {
	dc.Push()
	defer dc.Pop()

	dc.SetRGBA(245.0/255, 87.0/255, 108.0/255, 0.9)
	dc.SetLineWidth(2)
	dc.SetDash(6, 4)
	dc.DrawRectangle(bounds.Left, bounds.Top, bounds.Width(), bounds.Height())
	dc.Stroke()
	dc.SetDash()

	del := geometry.DeleteRect(bounds)
	dc.SetRGBA(239.0/255, 68.0/255, 68.0/255, 0.95)
	dc.DrawRectangle(del.Left, del.Top, del.Width(), del.Height())
	dc.Fill()
	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(2)
	dc.DrawLine(del.Left+4, del.Top+4, del.Right-4, del.Bottom-4)
	dc.DrawLine(del.Right-4, del.Top+4, del.Left+4, del.Bottom-4)
	dc.Stroke()

	rs := geometry.ResizeRect(bounds)
	dc.SetRGBA(15.0/255, 23.0/255, 42.0/255, 0.85)
	dc.DrawRectangle(rs.Left, rs.Top, rs.Width(), rs.Height())
	dc.Fill()
	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(1.5)
	dc.DrawLine(rs.Left+3, rs.Bottom-3, rs.Right-3, rs.Top+3)
	dc.Stroke()
}
