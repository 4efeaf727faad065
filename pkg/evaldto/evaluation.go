package evaldto

// Factor is one weighted term of an evaluation.
type Factor struct {
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	Weight    float64 `json:"weight"`
	Reasoning string  `json:"reasoning,omitempty"`
}

type Evaluation struct {
	PlayerAdvantage float64  `json:"player_advantage"`
	WinProbability  float64  `json:"win_probability"`
	Confidence      float64  `json:"confidence"`
	KeyFactors      []string `json:"key_factors"`
	MaterialScore   float64  `json:"material_score"`
	PositionScore   float64  `json:"position_score"`
	TempoScore      float64  `json:"tempo_score"`
	VPScore         float64  `json:"vp_score"`
	Band            string   `json:"band"`
	Explanation     string   `json:"explanation"`
	Factors         []Factor `json:"factors"`
	// Winning and Losing apply the default 0.3 advantage threshold to player 1.
	Winning bool `json:"winning"`
	Losing  bool `json:"losing"`
}

type EvaluateResponse struct {
	StateID    string     `json:"state_id"`
	Evaluation Evaluation `json:"evaluation"`
	Report     string     `json:"report,omitempty"`
}

type SaveStateResponse struct {
	StateID    string     `json:"state_id"`
	Evaluation Evaluation `json:"evaluation"`
}

type EncodeResponse struct {
	StateID            string      `json:"state_id"`
	Global             []float32   `json:"global"`
	Player1Units       [][]float32 `json:"player1_units"`
	Player2Units       [][]float32 `json:"player2_units"`
	Player1Mask        []bool      `json:"player1_mask"`
	Player2Mask        []bool      `json:"player2_mask"`
	TotalDim           int         `json:"total_dim"`
	FeatureNames       []string    `json:"feature_names"`
	GlobalFeatureNames []string    `json:"global_feature_names"`
}
