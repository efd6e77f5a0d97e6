package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestExtractOrganizations 验证组织名称的启发式识别
func TestExtractOrganizations(t *testing.T) {
	text := `Senior Software Engineer at Acme Technologies Inc from 2019 to 2023.
Previously worked at DataWorks GmbH on streaming pipelines.
B.Sc. in Computer Science, Stanford University, 2015.
Graduated from Imperial College with honors.`

	orgs := ExtractOrganizations(text)

	assert.Contains(t, orgs, "Acme Technologies Inc", "应识别带Inc后缀的公司")
	assert.Contains(t, orgs, "Stanford University", "应识别大学名称")
	assert.Contains(t, orgs, "DataWorks GmbH", "应识别 at XXX 形式的任职公司")
}

// TestExtractOrganizationsDedup 验证去重并保持首次出现顺序
func TestExtractOrganizationsDedup(t *testing.T) {
	text := `Engineer at Acme Corp. Later promoted at Acme Corp. Then left Acme Corp.`
	orgs := ExtractOrganizations(text)

	count := 0
	for _, o := range orgs {
		if o == "Acme Corp" {
			count++
		}
	}
	assert.Equal(t, 1, count, "同一组织只应出现一次")
}

// TestExtractOrganizationsEmpty 无组织信息时应返回空结果
func TestExtractOrganizationsEmpty(t *testing.T) {
	orgs := ExtractOrganizations("just some lowercase text without any names")
	assert.Empty(t, orgs)
}
