package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glucomind-ai/assistant/pkg/common/models"
	"github.com/glucomind-ai/assistant/pkg/knowledge"
	"github.com/glucomind-ai/assistant/pkg/patient"
	"github.com/glucomind-ai/assistant/pkg/prompt"
	"github.com/glucomind-ai/assistant/pkg/reasoning"
	"github.com/glucomind-ai/assistant/pkg/safety"
	"github.com/glucomind-ai/assistant/pkg/statistics"
	"github.com/glucomind-ai/assistant/pkg/terminology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: glogger.Default.LogMode(glogger.Silent)})
	require.NoError(t, err)

	return db, mock
}

func writeStatisticsWorkbook(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	header := []interface{}{
		"患者ID", "性别 (Female=1, Male=2)", "年龄 (years)", "身高 (m)", "体重 (kg)",
		"空腹胰岛素 (pmol/L)", "餐后2小时胰岛素 (pmol/L)",
	}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	row := []interface{}{"p1", "2", "63", "1.72", "71", "/", "120"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &row))

	path := filepath.Join(t.TempDir(), "statistics.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

// llmStub serves both upstream endpoints the pipeline calls.
func llmStub(t *testing.T, answer string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/embeddings":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{{"embedding": []float32{1, 0, 0}}},
			})
		case "/chat/completions":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"content": answer}},
				},
			})
		default:
			t.Errorf("unexpected upstream path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func expectProfileQueries(mock sqlmock.Sqlmock) {
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery(`SELECT (.+) FROM "patient_info"`).
		WillReturnRows(sqlmock.NewRows([]string{"patient_id", "name", "gender", "age", "bmi"}).
			AddRow("p1", "张三", "男", 63, 24.0))
	mock.ExpectQuery(`SELECT (.+) FROM "medication_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"record_id", "patient_id", "medication_date", "drug_name"}).
			AddRow("m1", "p1", time.Date(2021, 7, 25, 0, 0, 0, 0, time.UTC), "二甲双胍"))
	for _, table := range []string{"medical_records", "lab_results", "diagnosis_records", "diabetes_control_assessment", "hypertension_risk_assessment"} {
		mock.ExpectQuery(fmt.Sprintf(`SELECT (.+) FROM "%s"`, table)).
			WillReturnRows(sqlmock.NewRows([]string{"record_id", "patient_id"}))
	}
}

func newTestService(t *testing.T, db *gorm.DB, upstream string) *Service {
	t.Helper()

	rules, err := safety.LoadRules("")
	require.NoError(t, err)

	index := &knowledge.Index{
		Model:     "text-embedding-v2",
		Dimension: 3,
		Passages: []knowledge.Passage{
			{ID: "k1", Text: "二甲双胍是一线用药。", SourceDocumentID: "guide-01", Embedding: []float32{1, 0, 0}},
		},
	}

	reasoner := reasoning.NewClient("k", upstream, "qwen-plus", "text-embedding-v2", 5*time.Second)
	repo := patient.NewRepository(db)

	return NewService(
		patient.NewAggregator(repo),
		repo,
		statistics.NewService(statistics.NewSource(writeStatisticsWorkbook(t))),
		knowledge.NewRetriever(index, reasoner, 0.35, nil, 0),
		terminology.DefaultCatalog(),
		prompt.NewComposer(6000),
		reasoner,
		safety.NewValidator(rules),
		nil,
		Options{RetrievalTopK: 5, SectionTimeout: 5 * time.Second},
	)
}

func TestChatRunsFullPipeline(t *testing.T) {
	db, mock := newMockDB(t)
	expectProfileQueries(mock)

	server := llmStub(t, "这种药可以保证治愈糖尿病。")
	defer server.Close()

	service := newTestService(t, db, server.URL)
	response, err := service.Chat(context.Background(), models.ChatRequest{
		Question:  "T2DM患者能用二甲双胍吗？",
		PatientID: "p1",
	})
	require.NoError(t, err)

	assert.NotContains(t, response.Answer, "保证治愈")
	assert.Contains(t, response.Answer, "有助于病情控制")

	rules := safety.DefaultRules()
	assert.Equal(t, 1, strings.Count(response.Answer, rules.Disclaimer))
	assert.True(t, strings.HasSuffix(response.Answer, rules.Disclaimer))

	var blocked bool
	for _, f := range response.Findings {
		if f.Category == models.CategoryEthicsOverpromise {
			blocked = true
		}
	}
	assert.True(t, blocked, "expected an ethics finding, got %v", response.Findings)

	assert.Empty(t, response.Degraded)
	assert.NotEmpty(t, response.RequestID)
	assert.Equal(t, "p1", response.PatientID)
}

func TestChatWithoutPatientSkipsProfile(t *testing.T) {
	db, mock := newMockDB(t)
	_ = mock // no queries expected

	server := llmStub(t, "建议规律监测血糖。")
	defer server.Close()

	service := newTestService(t, db, server.URL)
	response, err := service.Chat(context.Background(), models.ChatRequest{
		Question: "什么是糖化血红蛋白？",
	})
	require.NoError(t, err)

	assert.Contains(t, response.Answer, "建议规律监测血糖。")
	assert.Empty(t, response.Degraded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatDegradesWhenProfileQueryFails(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT (.+) FROM "patient_info"`).
		WillReturnError(assert.AnError)

	server := llmStub(t, "一般性的健康建议。")
	defer server.Close()

	service := newTestService(t, db, server.URL)
	response, err := service.Chat(context.Background(), models.ChatRequest{
		Question:  "如何控制血糖？",
		PatientID: "p1",
	})
	require.NoError(t, err, "a degraded section must not fail the request")
	assert.Contains(t, response.Degraded, "patient_profile")
	assert.Contains(t, response.Answer, "一般性的健康建议。")
}

func TestChatDisabledSafetySkipsValidation(t *testing.T) {
	db, mock := newMockDB(t)
	_ = mock

	raw := "这种药可以保证治愈糖尿病。"
	server := llmStub(t, raw)
	defer server.Close()

	disabled := false
	service := newTestService(t, db, server.URL)
	response, err := service.Chat(context.Background(), models.ChatRequest{
		Question:          "能治好吗？",
		EnableSafetyCheck: &disabled,
	})
	require.NoError(t, err)

	assert.Equal(t, raw, response.Answer)
	assert.Empty(t, response.Findings)
}

func TestChatPropagatesReasoningFailure(t *testing.T) {
	db, mock := newMockDB(t)
	_ = mock

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/embeddings" {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{{"embedding": []float32{1, 0, 0}}},
			})
			return
		}
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	service := newTestService(t, db, server.URL)
	_, err := service.Chat(context.Background(), models.ChatRequest{Question: "如何控制血糖？"})

	var rerr *reasoning.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, reasoning.FailureUpstreamError, rerr.Kind)
}

func TestCheckMedicationUsesCurrentRecords(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT (.+) FROM "medication_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"record_id", "patient_id", "drug_name"}).
			AddRow("m1", "p1", "二甲双胍"))

	server := llmStub(t, "unused")
	defer server.Close()

	service := newTestService(t, db, server.URL)
	findings, err := service.CheckMedication(context.Background(), "p1", "碘造影剂")
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.CategoryMedicationInteraction, findings[0].Category)
}
