package library

// defaultSignatures returns the built-in taekwondo pose references. Heights
// are in pixels relative to hip/shoulder level (negative means above),
// stance width in pixels, angles in degrees.
func defaultSignatures() map[string]Signature {
	return map[string]Signature{
		"front_kick": {
			Values: map[string]float64{
				LeftKneeAngle:    45,
				RightKneeAngle:   160,
				LeftAnkleHeight:  -100,
				RightAnkleHeight: 50,
				StanceWidth:      30,
			},
			Tolerances: Tolerances{Angle: 30, Height: 40, Stance: 20},
		},
		"side_kick": {
			Values: map[string]float64{
				LeftKneeAngle:    90,
				RightKneeAngle:   160,
				LeftAnkleHeight:  -80,
				RightAnkleHeight: 50,
				StanceWidth:      80,
			},
			Tolerances: Tolerances{Angle: 25, Height: 35, Stance: 25},
		},
		"round_kick": {
			Values: map[string]float64{
				LeftKneeAngle:    110,
				RightKneeAngle:   160,
				LeftAnkleHeight:  -60,
				RightAnkleHeight: 50,
				StanceWidth:      70,
			},
			Tolerances: Tolerances{Angle: 30, Height: 40, Stance: 25},
		},
		"back_kick": {
			Values: map[string]float64{
				LeftKneeAngle:    45,
				RightKneeAngle:   160,
				LeftAnkleHeight:  -90,
				RightAnkleHeight: 50,
				StanceWidth:      40,
			},
			Tolerances: Tolerances{Angle: 35, Height: 45, Stance: 30},
		},
		"axe_kick": {
			Values: map[string]float64{
				LeftKneeAngle:    170,
				RightKneeAngle:   160,
				LeftAnkleHeight:  -120,
				RightAnkleHeight: 50,
				StanceWidth:      35,
			},
			Tolerances: Tolerances{Angle: 25, Height: 50, Stance: 25},
		},
		"fighting_stance": {
			Values: map[string]float64{
				LeftKneeAngle:    150,
				RightKneeAngle:   150,
				LeftAnkleHeight:  40,
				RightAnkleHeight: 40,
				StanceWidth:      60,
				LeftElbowAngle:   90,
				RightElbowAngle:  90,
			},
			Tolerances: Tolerances{Angle: 20, Height: 25, Stance: 30},
		},
		"horse_stance": {
			Values: map[string]float64{
				LeftKneeAngle:    120,
				RightKneeAngle:   120,
				LeftAnkleHeight:  45,
				RightAnkleHeight: 45,
				StanceWidth:      120,
			},
			Tolerances: Tolerances{Angle: 25, Height: 30, Stance: 40},
		},
		"high_block": {
			Values: map[string]float64{
				LeftElbowAngle:   120,
				RightElbowAngle:  160,
				LeftWristHeight:  -80,
				RightWristHeight: 20,
				LeftKneeAngle:    150,
				RightKneeAngle:   150,
			},
			Tolerances: Tolerances{Angle: 30, Height: 40, Stance: 30},
		},
		"low_block": {
			Values: map[string]float64{
				LeftElbowAngle:   140,
				RightElbowAngle:  160,
				LeftWristHeight:  60,
				RightWristHeight: 20,
				LeftKneeAngle:    150,
				RightKneeAngle:   150,
			},
			Tolerances: Tolerances{Angle: 30, Height: 40, Stance: 30},
		},
		"punch": {
			Values: map[string]float64{
				LeftElbowAngle:   160,
				RightElbowAngle:  90,
				LeftWristHeight:  -20,
				RightWristHeight: 10,
				LeftKneeAngle:    150,
				RightKneeAngle:   150,
			},
			Tolerances: Tolerances{Angle: 25, Height: 35, Stance: 30},
		},
	}
}
