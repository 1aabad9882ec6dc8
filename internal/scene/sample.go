package scene

// NewSampleScene builds the demo stage: a concave cat with a hat, a ball
// sitting in the cat's notch, a wall with a rock against it, a hidden ghost
// and a floor running off both sides of the stage.
func NewSampleScene() *Scene {
	s := NewEmptyScene("Sample", 480, 360)

	floor := NewSprite("Floor", 600, 20, []float32{0, 0, 600, 0, 600, 20, 0, 20})
	floor.Transform.X, floor.Transform.Y = -300, -190

	cat := NewSprite("Cat", 80, 80, []float32{0, 0, 80, 0, 80, 30, 30, 30, 30, 80, 0, 80})
	cat.Transform.X, cat.Transform.Y = -140, -40

	// Sits on top of the cat's upright arm, relative to the cat's look.
	hat := NewSprite("Hat", 30, 20, []float32{0, 0, 30, 0, 15, 20})
	hat.Transform.X, hat.Transform.Y = 0, 80
	hat.Parent = &cat.ID

	ball := NewSprite("Ball", 24, 24, []float32{24, 12, 20, 20, 12, 24, 4, 20, 0, 12, 4, 4, 12, 0, 20, 4})
	ball.Transform.X, ball.Transform.Y = -92, 8

	wall := NewSprite("Wall", 20, 200, []float32{0, 0, 20, 0, 20, 200, 0, 200})
	wall.Transform.X, wall.Transform.Y = 90, -100

	rock := NewSprite("Rock", 20, 20, []float32{0, 0, 20, 0, 20, 20, 0, 20})
	rock.Transform.X, rock.Transform.Y = 105, -10

	ghost := NewSprite("Ghost", 20, 20, []float32{0, 0, 20, 0, 20, 20, 0, 20})
	ghost.Transform.X, ghost.Transform.Y = 95, -10
	ghost.Visible = false

	s.Sprites = append(s.Sprites, floor, cat, hat, ball, wall, rock, ghost)
	s.Touch()
	return s
}
