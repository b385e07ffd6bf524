package fluid

// HandleCollisions resolves particle collisions against the draggable
// obstacle and the static circular wall. Obstacle response runs first,
// wall second, so the wall wins when both fire in one step.
//
// Parallel over particles: each particle writes only its own state.
func HandleCollisions(pb *ParticleBuffers, particleRadius float32, obs Obstacle, tank Circle, workers int) {
	obsR := obs.R + particleRadius
	obsR2 := obsR * obsR
	wallR := tank.R - particleRadius

	parallelRange(workers, 0, pb.N, func(i int) {
		px := pb.Pos[2*i]
		py := pb.Pos[2*i+1]
		vx := pb.Vel[2*i]
		vy := pb.Vel[2*i+1]

		if obs.Active {
			dx := px - obs.X
			dy := py - obs.Y
			d2 := dx*dx + dy*dy
			if d2 < obsR2 && d2 > distEps {
				d := sqrtf(d2)
				overlap := obsR - d
				px += dx / d * overlap
				py += dy / d * overlap
				vx = obs.VelX
				vy = obs.VelY
			}
		}

		dx := px - tank.X
		dy := py - tank.Y
		d2 := dx*dx + dy*dy
		if d2 > wallR*wallR && d2 > distEps {
			d := sqrtf(d2)
			overlap := d - wallR
			px -= dx / d * overlap
			py -= dy / d * overlap
			vx = 0
			vy = 0
		}

		pb.Pos[2*i] = px
		pb.Pos[2*i+1] = py
		pb.Vel[2*i] = vx
		pb.Vel[2*i+1] = vy
	})
}
