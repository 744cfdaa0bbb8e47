package undercover

import (
	"math/rand"

	"github.com/samber/lo"
)

type Category string

const (
	CategoryDaily     Category = "daily"
	CategoryCelebrity Category = "celebrity"
	CategoryPlace     Category = "place"
	CategoryAbstract  Category = "abstract"
)

// WordPair is one civilian word and the near miss handed to the undercover.
type WordPair struct {
	Civilian   string   `json:"civilian"`
	Undercover string   `json:"undercover"`
	Category   Category `json:"category"`
}

var wordBank = []WordPair{
	{"奶茶", "咖啡", CategoryDaily},
	{"馒头", "包子", CategoryDaily},
	{"筷子", "叉子", CategoryDaily},
	{"牙膏", "牙刷", CategoryDaily},
	{"毛巾", "浴巾", CategoryDaily},
	{"眼镜", "墨镜", CategoryDaily},
	{"手机", "平板", CategoryDaily},
	{"钢笔", "铅笔", CategoryDaily},
	{"米饭", "面条", CategoryDaily},
	{"苹果", "梨子", CategoryDaily},
	{"可乐", "雪碧", CategoryDaily},
	{"饺子", "馄饨", CategoryDaily},
	{"蛋糕", "面包", CategoryDaily},
	{"牛奶", "酸奶", CategoryDaily},
	{"薯条", "薯片", CategoryDaily},
	{"口红", "唇膏", CategoryDaily},
	{"耳机", "音响", CategoryDaily},
	{"钱包", "卡包", CategoryDaily},
	{"沙发", "椅子", CategoryDaily},
	{"被子", "毯子", CategoryDaily},
	{"雨伞", "雨衣", CategoryDaily},
	{"台灯", "吊灯", CategoryDaily},

	{"刘德华", "周润发", CategoryCelebrity},
	{"周杰伦", "林俊杰", CategoryCelebrity},
	{"成龙", "李连杰", CategoryCelebrity},
	{"赵本山", "宋小宝", CategoryCelebrity},
	{"郭德纲", "岳云鹏", CategoryCelebrity},
	{"姚明", "易建联", CategoryCelebrity},
	{"马云", "马化腾", CategoryCelebrity},
	{"李白", "杜甫", CategoryCelebrity},
	{"孙悟空", "猪八戒", CategoryCelebrity},
	{"蜘蛛侠", "蝙蝠侠", CategoryCelebrity},

	{"北京", "上海", CategoryPlace},
	{"长城", "故宫", CategoryPlace},
	{"医院", "诊所", CategoryPlace},
	{"超市", "便利店", CategoryPlace},
	{"图书馆", "书店", CategoryPlace},
	{"电影院", "剧院", CategoryPlace},
	{"游泳池", "浴室", CategoryPlace},
	{"火车站", "汽车站", CategoryPlace},
	{"机场", "码头", CategoryPlace},
	{"公园", "广场", CategoryPlace},

	{"初恋", "暗恋", CategoryAbstract},
	{"梦想", "理想", CategoryAbstract},
	{"友情", "爱情", CategoryAbstract},
	{"勇敢", "鲁莽", CategoryAbstract},
	{"骄傲", "自信", CategoryAbstract},
	{"紧张", "害怕", CategoryAbstract},
	{"开心", "兴奋", CategoryAbstract},
	{"伤心", "难过", CategoryAbstract},
	{"无聊", "寂寞", CategoryAbstract},
	{"幸福", "快乐", CategoryAbstract},
}

func RandomPair(rng *rand.Rand) WordPair {
	return wordBank[rng.Intn(len(wordBank))]
}

func PairsIn(c Category) []WordPair {
	return lo.Filter(wordBank, func(p WordPair, _ int) bool { return p.Category == c })
}
