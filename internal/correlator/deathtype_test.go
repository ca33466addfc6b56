package correlator

import (
	"testing"

	"github.com/kravein/starfeed/internal/conf"
	"github.com/kravein/starfeed/internal/model"
)

func destructionSig(from, to int, dmg, causer, driver string) *model.RawIncidentSignal {
	return &model.RawIncidentSignal{
		Method:       model.MethodDestruction,
		VehicleToken: "AEGS_Avenger_Titan_123456789",
		Driver:       driver,
		CausedBy:     causer,
		DamageType:   dmg,
		FromLevel:    from,
		DestroyLevel: to,
	}
}

func TestClassifyDestruction(t *testing.T) {
	tests := []struct {
		name   string
		sig    *model.RawIncidentSignal
		self   bool
		policy conf.SelfInflictedPolicy
		want   model.DeathType
	}{
		{"hull loss", destructionSig(1, 2, "Combat", "Kelvin", "TestPilot"), false, conf.SelfInflictedUnknown, model.DeathHard},
		{"disable", destructionSig(0, 1, "Combat", "Kelvin", "TestPilot"), false, conf.SelfInflictedUnknown, model.DeathSoft},
		{"ram by other", destructionSig(0, 1, "Collision", "Raider", "TestPilot"), false, conf.SelfInflictedUnknown, model.DeathCollision},
		{"self collision", destructionSig(0, 1, "Collision", "TestPilot", "TestPilot"), true, conf.SelfInflictedUnknown, model.DeathCrash},
		{"self disable, unknown policy", destructionSig(0, 1, "SelfDestruct", "TestPilot", "TestPilot"), true, conf.SelfInflictedUnknown, model.DeathUnknown},
		{"self disable, crash policy", destructionSig(0, 1, "SelfDestruct", "TestPilot", "TestPilot"), true, conf.SelfInflictedCrash, model.DeathCrash},
		{"no causer", destructionSig(0, 1, "", "", "TestPilot"), false, conf.SelfInflictedUnknown, model.DeathUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDestruction(tt.sig, tt.self, tt.policy); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyDeath(t *testing.T) {
	tests := []struct {
		name string
		sig  *model.RawIncidentSignal
		want model.DeathType
	}{
		{"combat", &model.RawIncidentSignal{Victims: []string{"A"}, Killers: []string{"B"}, DamageType: "Bullet"}, model.DeathCombat},
		{"bleed out", &model.RawIncidentSignal{Victims: []string{"A"}, DamageType: "BleedOut"}, model.DeathBleedOut},
		{"suffocation", &model.RawIncidentSignal{Victims: []string{"A"}, DamageType: "Suffocation"}, model.DeathSuffocation},
		{"own crash", &model.RawIncidentSignal{Victims: []string{"A"}, DamageType: "Crash"}, model.DeathCrash},
		{"suicide crash", &model.RawIncidentSignal{Victims: []string{"A"}, Killers: []string{"A"}, DamageType: "Collision"}, model.DeathCrash},
		{"rammed", &model.RawIncidentSignal{Victims: []string{"A"}, Killers: []string{"B"}, DamageType: "Collision"}, model.DeathCollision},
		{"bare notice", &model.RawIncidentSignal{Victims: []string{"A"}}, model.DeathUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDeath(tt.sig); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		e    *model.KillEvent
		want string
	}{
		{
			"hard kill with vehicle",
			&model.KillEvent{Killers: []string{"Kelvin"}, Victims: []string{"TestPilot"}, DeathType: model.DeathHard, VehicleModel: "Aegis Avenger"},
			"Kelvin destroyed TestPilot's Aegis Avenger",
		},
		{
			"combat on foot",
			&model.KillEvent{Killers: []string{"Kelvin"}, Victims: []string{"TestPilot"}, DeathType: model.DeathCombat},
			"Kelvin defeated TestPilot",
		},
		{
			"crash",
			&model.KillEvent{Victims: []string{"TestPilot"}, DeathType: model.DeathCrash, VehicleModel: "MISC Freelancer"},
			"TestPilot crashed their MISC Freelancer",
		},
		{
			"bleed out",
			&model.KillEvent{Victims: []string{"TestPilot"}, DeathType: model.DeathBleedOut},
			"TestPilot bled out",
		},
		{
			"unknown, no killer",
			&model.KillEvent{Victims: []string{"TestPilot"}, DeathType: model.DeathUnknown},
			"TestPilot died",
		},
		{
			"two killers",
			&model.KillEvent{Killers: []string{"A", "B"}, Victims: []string{"C"}, DeathType: model.DeathCombat},
			"A and B defeated C",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describe(tt.e); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
