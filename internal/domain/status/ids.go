// Package status defines the status-effect vocabulary shared by the engine,
// the persistence layer and the wire protocol: status ids, the three-word
// flag bitmap, persisted records and the error taxonomy.
// This package is PURE and must NOT import any infrastructure packages.
package status

// ID identifies a kind of status effect. Canonical ids are 1..MaxID.
type ID int

// MaxID is the highest id that fits in the three flag words.
const MaxID ID = 192

const (
	None               ID = 0
	Crime              ID = 1
	Poisoned           ID = 2
	FullInvisible      ID = 3
	Fade               ID = 4
	StartXP            ID = 5
	Ghost              ID = 6
	TeamLeader         ID = 7
	StarOfAccuracy     ID = 8
	Shield             ID = 9
	Stigma             ID = 10
	Dead               ID = 11
	Invisible          ID = 12
	RedName            ID = 15
	BlackName          ID = 16
	Superman           ID = 19
	ReflectThing       ID = 20
	DifReflectThing    ID = 21
	Freeze             ID = 22
	PartiallyInvisible ID = 23
	Cyclone            ID = 24
	Jumping            ID = 25
	Dodge              ID = 27
	Fly                ID = 28
	Intensify          ID = 29
	LuckyDiffuse       ID = 31
	LuckyAbsorb        ID = 32
	Cursed             ID = 33
	HeavenBless        ID = 34
	TopGuildLeader     ID = 35
	TopDeputyLeader    ID = 36
	TopMonthlyPK       ID = 37
	TopWeeklyPK        ID = 38
	TopClassWarrior    ID = 39
	TopClassTrojan     ID = 40
	TopClassArcher     ID = 41
	TopClassWater      ID = 42
	TopClassFire       ID = 43
	TopClassNinja      ID = 44
	PoisonStar         ID = 45
	ToxicFog           ID = 46
	ShurikenVortex     ID = 47
	FatalStrike        ID = 48
	OrangeHaloGlow     ID = 49
	Riding             ID = 51
	TopSpouse          ID = 52
	Accelerated        ID = 53
	Decelerated        ID = 54
	Frightened         ID = 55
	HeavenSparkle      ID = 56
	IncreaseMoveSpeed  ID = 57
	GodlyShield        ID = 58
	Dizzy              ID = 59
	Frozen             ID = 60
	Confused           ID = 61
	WeeklyTop8PK       ID = 65
	WeeklyTop2PKGold   ID = 66
	WeeklyTop2PKBlue   ID = 67
	MonthlyTop8PK      ID = 68
	MonthlyTop2PK      ID = 69
	MonthlyTop3PK      ID = 70
	Top8Fire           ID = 71
	Top2Fire           ID = 72
	Top3Fire           ID = 73
	Top8Water          ID = 74
	Top2Water          ID = 75
	Top3Water          ID = 76
	Top8Ninja          ID = 77
	Top2Ninja          ID = 78
	Top3Ninja          ID = 79
	Top8Warrior        ID = 80
	Top2Warrior        ID = 81
	Top3Warrior        ID = 82
	Top8Trojan         ID = 83
	Top2Trojan         ID = 84
	Top3Trojan         ID = 85
	Top8Archer         ID = 86
	Top2Archer         ID = 87
	Top3Archer         ID = 88
	Top3SpouseBlue     ID = 89
	Top2SpouseBlue     ID = 90
	Top3SpouseYellow   ID = 91
	Contestant         ID = 92
	ChainBoltActive    ID = 93
	AzureShield        ID = 94
	AzureShieldFade    ID = 95
	CarryingFlag       ID = 96
	TyrantAuraTeam     ID = 98
	TyrantAura         ID = 99
	FendAuraTeam       ID = 100
	FendAura           ID = 101
	MetalAuraTeam      ID = 102
	MetalAura          ID = 103
	WoodAuraTeam       ID = 104
	WoodAura           ID = 105
	WaterAuraTeam      ID = 106
	WaterAura          ID = 107
	FireAuraTeam       ID = 108
	FireAura           ID = 109
	EarthAuraTeam      ID = 110
	EarthAura          ID = 111
	SoulShackle        ID = 112
	Oblivion           ID = 113
	TopMonk            ID = 115
	Top8Monk           ID = 116
	Top2Monk           ID = 117
	Top3Monk           ID = 118
	CTFFlag            ID = 119
	ScurvyBomb         ID = 120
	CannonBarrage      ID = 121
	BlackBeardsRage    ID = 122
	TopPirate          ID = 123
	TopPirate8         ID = 124
	TopPirate2         ID = 125
	TopPirate3         ID = 126
	DefensiveInstance  ID = 127
	MagicDefender      ID = 129
	BuffPStrike        ID = 133
	BuffMStrike        ID = 134
	BuffImmunity       ID = 135
	BuffBreak          ID = 136
	BuffCounteraction  ID = 137
	BuffMaxHealth      ID = 138
	BuffPAttack        ID = 139
	BuffMAttack        ID = 140
	BuffFinalPDamage   ID = 141
	BuffFinalMDamage   ID = 142
	BuffFinalPReduce   ID = 143
	BuffFinalMReduce   ID = 144
	PathOfShadow       ID = 146
	BladeFlurry        ID = 147
	KineticSpark       ID = 148
	DragonFlow         ID = 149
	SuperCyclone       ID = 151
	SupremeGuildYellow ID = 152
	SupremeGuildBlue   ID = 153
	SupremeGuildUnder  ID = 154
	TopDragonWarrior   ID = 155
	DragonFury         ID = 159
	DragonCyclone      ID = 160
	DragonSwing        ID = 161
	MisterConquer      ID = 167
	MissConquer        ID = 168
	DestroyedStage01   ID = 169
	DestroyedStage02   ID = 170
	DestroyedStage03   ID = 171
	DestroyedStage04   ID = 172
	AuroraLotus        ID = 173
	FlameLotus         ID = 174
)

// legacyCodes maps historical client/database codes to canonical ids.
// Codes absent from the table are already canonical.
var legacyCodes = map[int]ID{
	2:   Poisoned,
	5:   StarOfAccuracy,
	6:   Shield,
	7:   Stigma,
	13:  Superman,
	17:  PartiallyInvisible,
	18:  Cyclone,
	21:  Dodge,
	22:  Fly,
	23:  Intensify,
	25:  LuckyDiffuse,
	29:  TopGuildLeader,
	30:  TopDeputyLeader,
	31:  TopMonthlyPK,
	32:  TopWeeklyPK,
	33:  TopClassWarrior,
	34:  TopClassTrojan,
	35:  TopClassArcher,
	36:  TopClassWater,
	37:  TopClassFire,
	38:  TopClassNinja,
	39:  ShurikenVortex,
	40:  FatalStrike,
	42:  PoisonStar,
	43:  Poisoned,
	44:  Shield,
	47:  Riding,
	49:  Accelerated,
	50:  Decelerated,
	51:  Frightened,
	52:  HeavenSparkle,
	53:  IncreaseMoveSpeed,
	54:  GodlyShield,
	55:  Dizzy,
	56:  Frozen,
	57:  Confused,
	88:  ChainBoltActive,
	89:  AzureShield,
	92:  TyrantAura,
	94:  FendAura,
	96:  MetalAura,
	98:  WoodAura,
	100: WaterAura,
	102: FireAura,
	104: EarthAura,
	106: SoulShackle,
	111: TopMonk,
	116: Shield,
	118: ScurvyBomb,
	120: BlackBeardsRage,
	121: TopPirate,
	125: DefensiveInstance,
	126: MagicDefender,
	129: CannonBarrage,
	145: PathOfShadow,
	146: BladeFlurry,
	147: KineticSpark,
	148: DragonFlow,
	150: SuperCyclone,
	151: SupremeGuildYellow,
	152: SupremeGuildBlue,
	153: SupremeGuildUnder,
	154: TopDragonWarrior,
	158: DragonFury,
	159: DragonCyclone,
	160: DragonSwing,
}

// RealStatus translates a historical status code into its canonical id.
// It must be applied exactly once, where an external code enters the server
// (admin API, AI link); registry internals only ever see canonical ids.
func RealStatus(code int) ID {
	if id, ok := legacyCodes[code]; ok {
		return id
	}
	return ID(code)
}

// Valid reports whether the id fits the flag bitmap.
func (id ID) Valid() bool {
	return id >= 1 && id <= MaxID
}

// IsCrowdControl reports whether adding the status breaks the owner's
// combat target lock and aborts casting.
func (id ID) IsCrowdControl() bool {
	switch id {
	case Frightened, Dizzy, Confused, Freeze, Frozen:
		return true
	}
	return false
}

// IsHarmful reports whether the status is a debuff on its owner.
func (id ID) IsHarmful() bool {
	switch id {
	case Poisoned, ToxicFog, Decelerated, SoulShackle, Cursed, PoisonStar:
		return true
	}
	return id.IsCrowdControl()
}

// IsMovement reports whether the status has a race-track display entry.
func (id ID) IsMovement() bool {
	switch id {
	case Accelerated, Decelerated, Frightened, HeavenSparkle, IncreaseMoveSpeed,
		GodlyShield, Dizzy, Frozen, Confused:
		return true
	}
	return false
}

// AuraType is the aura kind carried by attach/detach notifications.
type AuraType int

const (
	AuraNone AuraType = iota
	AuraTyrant
	AuraFend
	AuraMetal
	AuraWood
	AuraWater
	AuraFire
	AuraEarth
	AuraMagicDefender
)

// Aura returns the aura kind for aura-class statuses, or AuraNone.
func (id ID) Aura() AuraType {
	switch id {
	case TyrantAura:
		return AuraTyrant
	case FendAura:
		return AuraFend
	case MetalAura:
		return AuraMetal
	case WoodAura:
		return AuraWood
	case WaterAura:
		return AuraWater
	case FireAura:
		return AuraFire
	case EarthAura:
		return AuraEarth
	case MagicDefender:
		return AuraMagicDefender
	}
	return AuraNone
}

// IsElementalAura reports whether the status is one of the seven elemental
// auras that own a paired "team" status at id-1.
func (id ID) IsElementalAura() bool {
	a := id.Aura()
	return a != AuraNone && a != AuraMagicDefender
}

// TeamVariant returns the paired team status of an elemental aura.
func (id ID) TeamVariant() (ID, bool) {
	if !id.IsElementalAura() {
		return None, false
	}
	return id - 1, true
}
