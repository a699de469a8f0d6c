package scenes

import (
	"fmt"
	"strings"
)

// systemPrompt constrains the model to evidence-grounded extraction. The
// output contract is the flat scene schema; the scene_text template keeps
// downstream prompts uniform across pairs.
const systemPrompt = `당신은 대화 녹취록에서 과거 추억 장면을 추출하는 분석가입니다.

규칙:
1. 녹취록에 명시적으로 언급된 내용만 사용하세요. 추론이나 상상으로 장면을 만들지 마세요.
2. 모든 장면은 녹취록에서 그대로 인용한 근거 문장(evidence_quotes)을 1~3개 포함해야 합니다. 근거가 없는 장면은 출력하지 마세요.
3. scene_text는 반드시 다음 형식을 따르세요: "<시간 표현> <국가> 친구와 함께 <장소(선택)><활동>"
   예: "1990년대 한국 친구와 함께 서울에서 시장 구경"
4. 사진 주인과 다른 참가자의 각 쌍(pair)마다 정확히 2개의 장면을 출력하세요.
5. 서로 다른 활동을 먼저 각 쌍에 배분하고, 활동이 부족할 때만 재사용하세요.

출력은 JSON 객체 하나만, 다음 스키마로:
{
  "owner_label": "<사진 주인 라벨>",
  "scenes": [
    {
      "pair": ["<주인 라벨>", "<상대 라벨>"],
      "source_scope": "<근거가 된 대화 구간 요약>",
      "evidence_quotes": ["<녹취록 원문 인용>"],
      "action": "<활동>",
      "place": "<장소, 없으면 빈 문자열>",
      "scene_text": "<형식을 따른 장면 설명>"
    }
  ]
}`

func userPrompt(transcript string, participants []string, ownerLabel string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "참가자 라벨: %s\n", strings.Join(participants, ", "))
	fmt.Fprintf(&b, "사진 주인 라벨: %s\n\n", ownerLabel)
	b.WriteString("녹취록:\n")
	b.WriteString(strings.TrimSpace(transcript))
	return b.String()
}
